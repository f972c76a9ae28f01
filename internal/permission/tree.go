package permission

// Node is one entry of the permission selection tree. Group and module nodes
// carry children; ability leaves carry ModuleKey.
type Node struct {
	Label       string `json:"label"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
	ModuleKey   string `json:"module_key,omitempty"`
	Children    []Node `json:"children,omitempty"`
}

// SelectionState marks a tree key as selected in the role edit view.
type SelectionState struct {
	Checked        bool `json:"checked"`
	PartialChecked bool `json:"partialChecked"`
}

// Tree builds the selection tree visible to an actor holding granted.
// A module is shown only when its first ability is held, and a leaf only when
// that permission is held. Super admins see everything. Empty groups are pruned.
func Tree(granted []string, isSuperAdmin bool) []Node {
	held := make(map[string]bool, len(granted))
	for _, g := range granted {
		held[g] = true
	}

	// buckets keep first-seen group order; "" holds ungrouped modules
	var order []string
	buckets := make(map[string][]Module)
	for _, m := range modules {
		if _, ok := buckets[m.Group]; !ok {
			order = append(order, m.Group)
		}
		buckets[m.Group] = append(buckets[m.Group], m)
	}

	nodes := make([]Node, 0, len(order))
	for _, group := range order {
		var children []Node
		for _, m := range buckets[group] {
			if n, ok := moduleNode(m, held, isSuperAdmin); ok {
				children = append(children, n)
			}
		}
		if len(children) == 0 {
			continue
		}
		if group == "" {
			nodes = append(nodes, children...)
			continue
		}
		nodes = append(nodes, Node{
			Label:       Headline(group),
			Key:         Slug(group),
			Description: group + " group permissions. Expand to see all modules.",
			Children:    children,
		})
	}
	return nodes
}

func moduleNode(m Module, held map[string]bool, isSuperAdmin bool) (Node, bool) {
	if !isSuperAdmin && !held[Permission(m.Value, m.Abilities[0])] {
		return Node{}, false
	}

	leaves := make([]Node, 0, len(m.Abilities))
	for _, ability := range m.Abilities {
		p := Permission(m.Value, ability)
		if !isSuperAdmin && !held[p] {
			continue
		}
		leaves = append(leaves, Node{
			Key:       p,
			Label:     Headline(ability),
			ModuleKey: m.Value,
		})
	}

	return Node{
		Label:       Headline(m.Name),
		Key:         m.Value,
		Description: m.Description,
		Children:    leaves,
	}, true
}

// Selection marks every held permission, its module and its group as checked.
// Unknown codes are skipped.
func Selection(codes []string) map[string]SelectionState {
	selected := make(map[string]SelectionState)
	checked := SelectionState{Checked: true}
	for _, code := range codes {
		d, ok := details[code]
		if !ok {
			continue
		}
		selected[code] = checked
		selected[d.Module] = checked
		if d.GroupSlug != "" {
			selected[d.GroupSlug] = checked
		}
	}
	return selected
}
