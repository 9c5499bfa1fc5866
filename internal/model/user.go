package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a staff account. Profile.Role carries the legacy
// single-role string kept in sync alongside the role assignments.
type User struct {
	Base
	Username    string     `db:"username" json:"username"`
	Email       string     `db:"email" json:"email"`
	FirstName   string     `db:"first_name" json:"first_name"`
	LastName    string     `db:"last_name" json:"last_name"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	IsSuperuser bool       `db:"is_superuser" json:"is_superuser"`
	LegacyRole  *string    `db:"legacy_role" json:"legacy_role,omitempty"`
	LastLoginAt *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	return u.FirstName + " " + u.LastName
}

// UserFilter represents user search parameters
type UserFilter struct {
	BaseFilter
	RoleName string    `json:"role_name" form:"role_name"`
	RoleID   uuid.UUID `json:"role_id" form:"role_id"`
	Active   *bool     `json:"active" form:"active"`
}
