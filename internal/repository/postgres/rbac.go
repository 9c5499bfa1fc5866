package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medhq/hms-core/internal/model"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

func (r *rbacRepository) CreateRole(ctx context.Context, role *model.Role) error {
	query := `
		INSERT INTO roles (id, name, description, parent_id, is_system_role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	role.ID = uuid.New()
	role.CreatedAt = time.Now()
	role.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		role.ID,
		role.Name,
		role.Description,
		role.ParentID,
		role.IsSystemRole,
		role.CreatedAt,
		role.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetRole(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	query := `
		SELECT id, name, description, parent_id, is_system_role, created_at, updated_at
		FROM roles
		WHERE id = $1
	`
	var role model.Role
	err := r.db.GetContext(ctx, &role, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("role not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

func (r *rbacRepository) GetRoleByName(ctx context.Context, name string) (*model.Role, error) {
	query := `
		SELECT id, name, description, parent_id, is_system_role, created_at, updated_at
		FROM roles
		WHERE name = $1
	`
	var role model.Role
	err := r.db.GetContext(ctx, &role, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("role not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return &role, nil
}

func (r *rbacRepository) UpdateRole(ctx context.Context, role *model.Role) error {
	query := `
		UPDATE roles
		SET name = $1, description = $2, parent_id = $3, is_system_role = $4, updated_at = $5
		WHERE id = $6
	`
	role.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		role.Name,
		role.Description,
		role.ParentID,
		role.IsSystemRole,
		role.UpdatedAt,
		role.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("role not found")
	}
	return nil
}

func (r *rbacRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("role not found")
	}
	return nil
}

func (r *rbacRepository) ListRoles(ctx context.Context) ([]*model.Role, error) {
	query := `
		SELECT id, name, description, parent_id, is_system_role, created_at, updated_at
		FROM roles
		ORDER BY name
	`
	var roles []*model.Role
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (r *rbacRepository) CreatePermission(ctx context.Context, perm *model.Permission) error {
	query := `
		INSERT INTO permissions (id, codename, name, description, category, is_custom, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	perm.ID = uuid.New()
	perm.CreatedAt = time.Now()
	perm.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		perm.ID,
		perm.Codename,
		perm.Name,
		perm.Description,
		perm.Category,
		perm.IsCustom,
		perm.CreatedAt,
		perm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetPermissionByCodename(ctx context.Context, codename string) (*model.Permission, error) {
	query := `
		SELECT id, codename, name, description, category, is_custom, created_at, updated_at
		FROM permissions
		WHERE codename = $1
	`
	var perm model.Permission
	err := r.db.GetContext(ctx, &perm, query, codename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("permission not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return &perm, nil
}

func (r *rbacRepository) ListPermissions(ctx context.Context) ([]*model.Permission, error) {
	query := `
		SELECT id, codename, name, description, category, is_custom, created_at, updated_at
		FROM permissions
		ORDER BY category, codename
	`
	var perms []*model.Permission
	if err := r.db.SelectContext(ctx, &perms, query); err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

func (r *rbacRepository) AssignPermissionToRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	query := `
		INSERT INTO role_permissions (id, role_id, permission_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`
	now := time.Now()
	_, err := r.db.ExecContext(ctx, query, uuid.New(), roleID, permissionID, now, now)
	if err != nil {
		return fmt.Errorf("failed to assign permission to role: %w", err)
	}
	return nil
}

func (r *rbacRepository) RevokePermissionFromRole(ctx context.Context, roleID, permissionID uuid.UUID) error {
	query := `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`
	_, err := r.db.ExecContext(ctx, query, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to revoke permission from role: %w", err)
	}
	return nil
}

func (r *rbacRepository) GetRolePermissions(ctx context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	query := `
		SELECT p.id, p.codename, p.name, p.description, p.category, p.is_custom, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.codename
	`
	var perms []*model.Permission
	if err := r.db.SelectContext(ctx, &perms, query, roleID); err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}
	return perms, nil
}

func (r *rbacRepository) AssignRoleToUser(ctx context.Context, userRole *model.UserRole) error {
	query := `
		INSERT INTO user_roles (id, user_id, role_id, assigned_by, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`
	userRole.ID = uuid.New()
	userRole.CreatedAt = time.Now()
	userRole.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		userRole.ID,
		userRole.UserID,
		userRole.RoleID,
		userRole.AssignedBy,
		userRole.ExpiresAt,
		userRole.CreatedAt,
		userRole.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to assign role to user: %w", err)
	}
	return nil
}

func (r *rbacRepository) RevokeRoleFromUser(ctx context.Context, userID, roleID uuid.UUID) error {
	query := `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to revoke role from user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("role assignment not found")
	}
	return nil
}

func (r *rbacRepository) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]*model.Role, error) {
	query := `
		SELECT ro.id, ro.name, ro.description, ro.parent_id, ro.is_system_role, ro.created_at, ro.updated_at
		FROM roles ro
		JOIN user_roles ur ON ur.role_id = ro.id
		WHERE ur.user_id = $1
		  AND (ur.expires_at IS NULL OR ur.expires_at > NOW())
		ORDER BY ro.name
	`
	var roles []*model.Role
	if err := r.db.SelectContext(ctx, &roles, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	return roles, nil
}

func (r *rbacRepository) GetUserPermissions(ctx context.Context, userID uuid.UUID) ([]*model.UserPermission, error) {
	query := `
		SELECT id, user_id, permission_id, granted, created_at, updated_at
		FROM user_permissions
		WHERE user_id = $1
	`
	var perms []*model.UserPermission
	if err := r.db.SelectContext(ctx, &perms, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}
	return perms, nil
}

func (r *rbacRepository) CountRoleUsers(ctx context.Context, roleID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_roles WHERE role_id = $1`, roleID)
	if err != nil {
		return 0, fmt.Errorf("failed to count role users: %w", err)
	}
	return count, nil
}

func (r *rbacRepository) CountRoleChildren(ctx context.Context, roleID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM roles WHERE parent_id = $1`, roleID)
	if err != nil {
		return 0, fmt.Errorf("failed to count role children: %w", err)
	}
	return count, nil
}
