package auth

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleClient Role = "client"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleStaff, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role belongs to park personnel (staff or admin).
func (r Role) IsStaff() bool {
	return r == RoleStaff || r == RoleAdmin
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   Role
}

// SystemActor is used by background jobs that act on behalf of the park office.
var SystemActor = Actor{UserID: "system", Role: RoleAdmin}
