package auth

import "time"

// Role is the authorization level attached to a user record.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleHR       Role = "hr"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the known levels.
func (r Role) Valid() bool {
	switch r {
	case RoleEmployee, RoleHR, RoleAdmin:
		return true
	}
	return false
}

// UserProfile is the identity and authorization snapshot owned by the
// credential store. The auth core only ever reads it; employee management
// flows elsewhere create and update rows.
//
// Authorization-sensitive fields (Role, IsActive) are re-read from the store
// on every verify/refresh call and are never trusted from token claims.
type UserProfile struct {
	ID           string    `json:"id"`
	EmployeeCode string    `json:"employeeCode"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Department   string    `json:"department"`
	Role         Role      `json:"role"`
	HODEmail     string    `json:"hodEmail,omitempty"`
	IsActive     bool      `json:"isActive"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
	UpdatedAt    time.Time `json:"-"`
}

// Public returns a copy safe to serialize to clients: identical fields with
// the password hash stripped.
func (u UserProfile) Public() UserProfile {
	u.PasswordHash = ""
	return u
}
