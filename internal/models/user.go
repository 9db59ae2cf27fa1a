package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// IsStaff reports whether the role may read other users' attempts.
func (r UserRole) IsStaff() bool {
	return r == RoleInstructor || r == RoleAdmin
}

// User is resolved from the identity provider; it is not persisted by this service.
type User struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Role      UserRole `json:"role"`
	AvatarURL *string  `json:"avatar_url"`

	CreatedAt time.Time `json:"created_at"`
}
