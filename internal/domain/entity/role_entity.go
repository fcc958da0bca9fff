package entity

// Role is the authorization role stored on a user
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RolePremium Role = "premium"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RolePremium:
		return true
	}
	return false
}

// Toggled returns the opposite role of the user/premium pair.
// ok is false for roles outside that pair (admin, unknown).
func (r Role) Toggled() (next Role, ok bool) {
	switch r {
	case RoleUser:
		return RolePremium, true
	case RolePremium:
		return RoleUser, true
	default:
		return r, false
	}
}
