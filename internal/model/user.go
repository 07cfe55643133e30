package model

import "time"

// Role is the coarse authorization tier assigned to every account.
type Role string

const (
	RoleMember    Role = "member"
	RoleExecutive Role = "executive"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleExecutive, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	ProfileImage string    `json:"profile_image"`
	DateJoined   time.Time `json:"date_joined"`
}
