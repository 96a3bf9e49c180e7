// Package authz implements the scope and visibility resolution engine: the rules
// deciding, for a given actor and resource, whether an action is allowed. Decisions
// are values, not errors — a denied action is a normal outcome the caller renders
// as an access-denied response. Nothing in this package mutates state; resolvers
// perform only the minimal store reads needed to establish scope.
package authz

// ActorContext identifies who is requesting an action. It is derived once per
// request by the authentication middleware and threaded explicitly through every
// call; there is no ambient identity state.
type ActorContext struct {
	OrganizationID string
	UserID         string
	Role           string // models.RoleAdmin, RoleManager, or RoleMember
}

// Action is an operation an actor attempts on a resource
type Action string

// Actions understood by the resolver
const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
)

// Reason explains a Deny decision
type Reason string

// Deny reasons. CrossTenant dominates everything: a resource outside the actor's
// organization is denied before role is even considered.
const (
	ReasonCrossTenant      Reason = "cross_tenant"
	ReasonNotAssigned      Reason = "not_assigned"
	ReasonInsufficientRole Reason = "insufficient_role"
	ReasonNotFound         Reason = "not_found"
)

// Decision is the outcome of a permission check
type Decision struct {
	Allowed bool
	Reason  Reason
	// StatusOnly marks an edit allowance limited to the task status field. Set
	// when a member edits a task assigned to them; any other field change must
	// be rejected by the handler.
	StatusOnly bool
}

// Allow returns an allowing decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// AllowStatusOnly returns an allowing decision restricted to status changes
func AllowStatusOnly() Decision {
	return Decision{Allowed: true, StatusOnly: true}
}

// Deny returns a denying decision with the given reason
func Deny(reason Reason) Decision {
	return Decision{Allowed: false, Reason: reason}
}
