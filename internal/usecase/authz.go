package usecase

import "gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"

// Resource is a permission-checked entity kind.
type Resource string

const (
	ResourceCallList Resource = "call_list"
	ResourceItem     Resource = "call_list_item"
	ResourceCallLog  Resource = "call_log"
	ResourceFollowup Resource = "followup"
)

// Action is an operation on a Resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
)

// Authorizer is the permission gate consulted at every entry point.
type Authorizer interface {
	HasPermission(caller tenant.Caller, resource Resource, action Action) bool
}

// RoleAuthorizer grants administrators everything and plain callers the
// actions needed to work their own queue.
type RoleAuthorizer struct{}

var callerGrants = map[Resource]map[Action]bool{
	ResourceCallList: {ActionRead: true},
	ResourceItem:     {ActionRead: true, ActionUpdate: true, ActionAssign: true},
	ResourceCallLog:  {ActionRead: true, ActionCreate: true, ActionUpdate: true},
	ResourceFollowup: {ActionRead: true, ActionCreate: true, ActionUpdate: true},
}

func (RoleAuthorizer) HasPermission(caller tenant.Caller, resource Resource, action Action) bool {
	if caller.IsAdmin() {
		return true
	}
	return callerGrants[resource][action]
}
