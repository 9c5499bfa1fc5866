package model

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a named collection of permissions. Roles form a
// hierarchy through ParentID; a role inherits every permission of its
// ancestors.
type Role struct {
	Base
	Name         string     `db:"name" json:"name"`
	Description  string     `db:"description" json:"description"`
	ParentID     *uuid.UUID `db:"parent_id" json:"parent_id,omitempty"`
	IsSystemRole bool       `db:"is_system_role" json:"is_system_role"`
}

// Permission is an atomic grant identified by codename, e.g.
// "patients.create". Category groups permissions for display.
type Permission struct {
	Base
	Codename    string `db:"codename" json:"codename"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
	IsCustom    bool   `db:"is_custom" json:"is_custom"`
}

type RolePermission struct {
	Base
	RoleID       uuid.UUID `db:"role_id" json:"role_id"`
	PermissionID uuid.UUID `db:"permission_id" json:"permission_id"`
}

// UserRole assigns a role to a user, with optional bookkeeping of who
// granted it and when it expires.
type UserRole struct {
	Base
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	RoleID     uuid.UUID  `db:"role_id" json:"role_id"`
	AssignedBy *uuid.UUID `db:"assigned_by" json:"assigned_by,omitempty"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// UserPermission grants a permission directly to a user, bypassing
// roles. Deny entries override role grants.
type UserPermission struct {
	Base
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	PermissionID uuid.UUID `db:"permission_id" json:"permission_id"`
	Granted      bool      `db:"granted" json:"granted"`
}

// RoleWithPermissions bundles a role and its resolved permission set
// for API responses.
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}

type CreateRoleRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	ParentName  string   `json:"parent_name"`
	Permissions []string `json:"permissions"`
}

type AssignRoleRequest struct {
	RoleName string `json:"role_name" binding:"required"`
}
