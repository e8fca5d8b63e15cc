package entity

import "time"

// Role is the closed set of roles a user can hold within a company
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	default:
		return false
	}
}

// CanApprove reports whether the role may hold approval steps
func (r Role) CanApprove() bool {
	return r == RoleAdmin || r == RoleManager
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Company owns users, claims and a single approval rule configuration
type Company struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"default_currency"`
	CreatedAt       time.Time `json:"created_at"`
}

// User is a member of a company. ManagerID is nil when the user reports to nobody.
type User struct {
	ID         int64     `json:"id"`
	CompanyID  int64     `json:"company_id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email,omitempty"`
	Role       Role      `json:"role"`
	ManagerID  *int64    `json:"manager_id,omitempty"`
	LarkOpenID string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName returns "First Last" or the username when no name is set
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}
