package auth

// Action identifies a guarded operation for access decisions.
type Action string

const (
	ActionUserUpdate      Action = "user.update"
	ActionUserDelete      Action = "user.delete"
	ActionFranchiseCreate Action = "franchise.create"
	ActionFranchiseDelete Action = "franchise.delete"
	ActionFranchiseOwn    Action = "franchise.listOwn"
	ActionStoreCreate     Action = "store.create"
	ActionStoreDelete     Action = "store.delete"
	ActionMenuUpdate      Action = "menu.update"
)

// Target names the resource an action operates on. Zero fields mean "no
// such scope"; a rule that needs a missing scope denies rather than skips.
type Target struct {
	UserID      int
	FranchiseID int
}

// CanAccess decides whether the principal may perform action on target.
// Pure function over the principal's role set: rules are evaluated in order
// and the first match wins, with deny as the default.
func CanAccess(p Principal, action Action, target Target) bool {
	if hasRole(p, RoleAdmin, 0) {
		return true
	}
	switch action {
	case ActionUserUpdate, ActionUserDelete, ActionFranchiseOwn:
		return target.UserID != 0 && target.UserID == p.ID
	case ActionStoreCreate, ActionStoreDelete, ActionFranchiseDelete:
		return target.FranchiseID != 0 && hasRole(p, RoleFranchisee, target.FranchiseID)
	}
	return false
}

// hasRole reports whether the principal holds the role; objectID of zero
// matches only unscoped assignments.
func hasRole(p Principal, role Role, objectID int) bool {
	for _, a := range p.Roles {
		if a.Role != role {
			continue
		}
		if objectID == 0 {
			if a.ObjectID == 0 {
				return true
			}
			continue
		}
		if a.ObjectID == objectID {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal holds the unscoped admin role.
func (p Principal) IsAdmin() bool {
	return hasRole(p, RoleAdmin, 0)
}
