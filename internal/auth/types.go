package auth

// Role is one of the closed set of role tags a user may hold.
type Role string

const (
	// RoleDiner is the default role granted on registration.
	RoleDiner Role = "diner"
	// RoleFranchisee grants authority over a single franchise. Assignments
	// carry the franchise id in ObjectID.
	RoleFranchisee Role = "franchisee"
	// RoleAdmin is unscoped and implies authority over everything.
	RoleAdmin Role = "admin"
)

// RoleAssignment pairs a role tag with an optional franchise scope.
// ObjectID is zero for unscoped roles.
type RoleAssignment struct {
	Role     Role `json:"role"`
	ObjectID int  `json:"objectId,omitempty"`
}

// User is an account row as loaded from the directory. The password hash
// never leaves the process.
type User struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"-"`
	Roles        []RoleAssignment `json:"roles"`
}

// Principal is the authenticated actor attached to a single request. It is
// built from a verified token plus a fresh directory lookup, so role changes
// made after token issuance take effect immediately.
type Principal struct {
	ID    int              `json:"id"`
	Name  string           `json:"name"`
	Email string           `json:"email"`
	Roles []RoleAssignment `json:"roles"`
}

// PrincipalFromUser projects a directory user into a request principal.
func PrincipalFromUser(u *User) Principal {
	roles := make([]RoleAssignment, len(u.Roles))
	copy(roles, u.Roles)
	return Principal{ID: u.ID, Name: u.Name, Email: u.Email, Roles: roles}
}
