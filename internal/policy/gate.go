package policy

import (
	"errors"
	"fmt"
)

// Abilities checked by the resource policies beyond the catalog abilities.
const (
	ViewAny     = "viewAny"
	View        = "view"
	Create      = "create"
	Update      = "update"
	Delete      = "delete"
	Restore     = "restore"
	ForceDelete = "forceDelete"
	Password    = "password"
)

const defaultDenyMessage = "You are not allowed to perform this action."

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed  bool
	Message  string
	NotFound bool
}

// Allow grants the ability.
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny refuses the ability with a message.
func Deny(message string) Decision {
	if message == "" {
		message = defaultDenyMessage
	}
	return Decision{Message: message}
}

// DenyAsNotFound refuses the ability and hides the target's existence.
func DenyAsNotFound() Decision {
	return Decision{NotFound: true, Message: "Not found."}
}

func allowIf(ok bool) Decision {
	if ok {
		return Allow()
	}
	return Deny("")
}

// DeniedError is returned by Gate.Check when a decision refuses access.
type DeniedError struct {
	Decision Decision
}

func (e *DeniedError) Error() string {
	return e.Decision.Message
}

// IsDenied unwraps a DeniedError.
func IsDenied(err error) (*DeniedError, bool) {
	var d *DeniedError
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// Policy decides abilities for one resource. target may be nil for
// abilities that have no instance (viewAny, create).
type Policy interface {
	Decide(actor *Actor, ability string, target any) Decision
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(actor *Actor, ability string, target any) Decision

func (f PolicyFunc) Decide(actor *Actor, ability string, target any) Decision {
	return f(actor, ability, target)
}

// Gate dispatches authorization checks to resource policies.
type Gate struct {
	policies map[string]Policy
}

// NewGate returns a gate with the default resource policies registered.
func NewGate() *Gate {
	g := &Gate{policies: make(map[string]Policy)}
	g.Register(ResourceRole, PolicyFunc(rolePolicy))
	g.Register(ResourceUser, PolicyFunc(userPolicy))
	g.Register(ResourceFormBuilder, PolicyFunc(formBuilderPolicy))
	g.Register(ResourceAssociationType, PolicyFunc(associationTypePolicy))
	g.Register(ResourceStakeholder, PolicyFunc(stakeholderPolicy))
	g.Register(ResourceAuditLog, PolicyFunc(auditLogPolicy))
	return g
}

// Register installs or replaces the policy of a resource.
func (g *Gate) Register(resource string, p Policy) {
	g.policies[resource] = p
}

// Authorize evaluates the super admin bypass once, then the resource policy.
func (g *Gate) Authorize(actor *Actor, resource, ability string, target any) Decision {
	if actor == nil {
		return Deny("")
	}
	if actor.IsSuperAdmin() {
		return Allow()
	}
	p, ok := g.policies[resource]
	if !ok {
		return Deny("")
	}
	return p.Decide(actor, ability, target)
}

// Check is Authorize returning a *DeniedError on refusal.
func (g *Gate) Check(actor *Actor, resource, ability string, target any) error {
	d := g.Authorize(actor, resource, ability, target)
	if d.Allowed {
		return nil
	}
	return &DeniedError{Decision: d}
}

// String renders a decision for logs.
func (d Decision) String() string {
	switch {
	case d.Allowed:
		return "allow"
	case d.NotFound:
		return "deny(not found)"
	default:
		return fmt.Sprintf("deny(%s)", d.Message)
	}
}
