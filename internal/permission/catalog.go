// Package permission holds the static permission catalog. Every permission
// string has the form <module>_<ability>, e.g. "role_delete".
package permission

import (
	"strings"
	"unicode"
)

// Abilities
const (
	AbilityAccess   = "access"
	AbilityCreate   = "create"
	AbilityUpdate   = "update"
	AbilityDelete   = "delete"
	AbilityPassword = "password"
)

// Module values
const (
	ModuleFormBuilder     = "form_builder"
	ModuleUser            = "user"
	ModuleRole            = "role"
	ModuleAssociationType = "association_type"
	ModuleStakeholder     = "stakeholder"
	ModuleAuditLog        = "audit_log"
)

// Module is one functional area of the dashboard and the abilities it exposes.
type Module struct {
	Value       string
	Name        string
	Group       string
	Description string
	Abilities   []string
}

// Details describes a single permission string.
type Details struct {
	Module      string `json:"module"`
	ModuleName  string `json:"module_name"`
	Group       string `json:"group,omitempty"`
	GroupSlug   string `json:"group_slug,omitempty"`
	Description string `json:"description"`
	Ability     string `json:"ability"`
}

// modules is declared in tree rendering order.
var modules = []Module{
	{
		Value:       ModuleFormBuilder,
		Name:        "Form Builder",
		Group:       "Forms",
		Description: "Build assessment and monitoring forms",
		Abilities:   []string{AbilityAccess, AbilityCreate, AbilityUpdate, AbilityDelete},
	},
	{
		Value:       ModuleUser,
		Name:        "Users",
		Group:       "User Management",
		Description: "Manage dashboard users",
		Abilities:   []string{AbilityAccess, AbilityCreate, AbilityUpdate, AbilityPassword, AbilityDelete},
	},
	{
		Value:       ModuleRole,
		Name:        "Roles",
		Group:       "User Management",
		Description: "Manage roles and their permissions",
		Abilities:   []string{AbilityAccess, AbilityCreate, AbilityUpdate, AbilityDelete},
	},
	{
		Value:       ModuleAssociationType,
		Name:        "Association Types",
		Group:       "Setup",
		Description: "Manage association types",
		Abilities:   []string{AbilityAccess, AbilityCreate, AbilityUpdate, AbilityDelete},
	},
	{
		Value:       ModuleStakeholder,
		Name:        "Stakeholders",
		Group:       "Profile",
		Description: "Manage stakeholder profiles",
		Abilities:   []string{AbilityAccess, AbilityCreate, AbilityUpdate, AbilityDelete},
	},
	{
		Value:       ModuleAuditLog,
		Name:        "Audit Logs",
		Description: "View the activity history",
	},
}

var (
	all          []string
	details      map[string]Details
	groups       []string
	groupSlugs   []string
	moduleValues []string
	placeholders map[string]bool
)

func init() {
	details = make(map[string]Details)
	placeholders = make(map[string]bool)
	seenGroup := make(map[string]bool)

	for i := range modules {
		m := &modules[i]
		if len(m.Abilities) == 0 {
			m.Abilities = []string{AbilityAccess}
		}
		moduleValues = append(moduleValues, m.Value)
		placeholders[m.Value] = true

		slug := ""
		if m.Group != "" {
			slug = Slug(m.Group)
			if !seenGroup[m.Group] {
				seenGroup[m.Group] = true
				groups = append(groups, m.Group)
				groupSlugs = append(groupSlugs, slug)
				placeholders[slug] = true
			}
		}

		for _, ability := range m.Abilities {
			p := Permission(m.Value, ability)
			all = append(all, p)
			details[p] = Details{
				Module:      m.Value,
				ModuleName:  m.Name,
				Group:       m.Group,
				GroupSlug:   slug,
				Description: m.Description,
				Ability:     ability,
			}
		}
	}
}

// Permission builds the permission string for a module ability.
func Permission(module, ability string) string {
	return module + "_" + ability
}

// Modules returns the catalog modules in declaration order.
func Modules() []Module {
	out := make([]Module, len(modules))
	copy(out, modules)
	return out
}

// All returns every valid permission string, module order then ability order.
func All() []string {
	out := make([]string, len(all))
	copy(out, all)
	return out
}

// WithDetails returns the permission string to details index.
func WithDetails() map[string]Details {
	out := make(map[string]Details, len(details))
	for k, v := range details {
		out[k] = v
	}
	return out
}

// Lookup returns the details of p and whether p is a known permission.
func Lookup(p string) (Details, bool) {
	d, ok := details[p]
	return d, ok
}

// IsValid reports whether p is a known permission string.
func IsValid(p string) bool {
	_, ok := details[p]
	return ok
}

// Groups returns the distinct non-empty module groups.
func Groups() []string {
	out := make([]string, len(groups))
	copy(out, groups)
	return out
}

// GroupSlugs returns the slug of every group, e.g. "user-management".
func GroupSlugs() []string {
	out := make([]string, len(groupSlugs))
	copy(out, groupSlugs)
	return out
}

// ModuleValues returns the value of every module.
func ModuleValues() []string {
	out := make([]string, len(moduleValues))
	copy(out, moduleValues)
	return out
}

// IsPlaceholder reports whether key is a tree header (group slug or module value)
// rather than a grantable permission.
func IsPlaceholder(key string) bool {
	return placeholders[key]
}

// FilterValid drops placeholder keys and keeps real permissions in input order.
func FilterValid(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if IsPlaceholder(k) {
			continue
		}
		if IsValid(k) {
			out = append(out, k)
		}
	}
	return out
}

// Slug lowercases s and joins its words with hyphens.
func Slug(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// Headline turns "user-management" or "user_management" into "User Management".
func Headline(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '-' || r == '_' || unicode.IsSpace(r)
	})
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
