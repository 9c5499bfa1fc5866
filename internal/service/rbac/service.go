package rbac

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/catalog"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

type Service struct {
	repo   repository.RBACRepository
	users  repository.UserRepository
	logger zerolog.Logger
}

func NewService(repo repository.RBACRepository, users repository.UserRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// GetUserRoles returns the names of every role the user acts under:
// assigned roles plus their ancestors, and the legacy profile role
// when one is still set. Superusers get every well-known role name.
func (s *Service) GetUserRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsSuperuser {
		names := make([]string, 0, len(catalog.Roles))
		for _, r := range catalog.Roles {
			names = append(names, r.Name)
		}
		return names, nil
	}

	roles, err := s.repo.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	seen := make(map[string]bool)
	names := make([]string, 0, len(roles))
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, r := range roles {
		add(r.Name)
		visited := map[uuid.UUID]bool{r.ID: true}
		parentID := r.ParentID
		for parentID != nil && !visited[*parentID] {
			visited[*parentID] = true
			parent, err := s.repo.GetRole(ctx, *parentID)
			if err != nil {
				if apperrors.IsNotFound(err) {
					break
				}
				return nil, fmt.Errorf("failed to get parent role: %w", err)
			}
			add(parent.Name)
			parentID = parent.ParentID
		}
	}
	if user.LegacyRole != nil {
		add(*user.LegacyRole)
	}
	return names, nil
}

// EffectivePermissions resolves the full permission set for a user:
// role grants including inherited ancestors, plus direct user grants,
// minus direct user denials. Keys are stored codenames.
func (s *Service) EffectivePermissions(ctx context.Context, userID uuid.UUID) (map[string]bool, error) {
	perms := make(map[string]bool)

	roles, err := s.repo.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}
	for _, role := range roles {
		// Fresh visited set per assigned role: two roles sharing an
		// ancestor is legal, a repeat within one parent chain is not.
		if err := s.collectRolePermissions(ctx, role, make(map[uuid.UUID]bool), perms); err != nil {
			return nil, err
		}
	}

	direct, err := s.repo.GetUserPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get direct user permissions: %w", err)
	}
	var denials []uuid.UUID
	for _, up := range direct {
		if up.Granted {
			perm, err := s.permissionByID(ctx, up.PermissionID)
			if err != nil {
				return nil, err
			}
			if perm != nil {
				perms[perm.Codename] = true
			}
		} else {
			denials = append(denials, up.PermissionID)
		}
	}
	for _, id := range denials {
		perm, err := s.permissionByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if perm != nil {
			delete(perms, perm.Codename)
		}
	}
	return perms, nil
}

// collectRolePermissions walks the role and its ancestors, adding
// every granted codename. The visited set covers one parent chain; a
// repeat means the stored hierarchy has a cycle.
func (s *Service) collectRolePermissions(ctx context.Context, role *model.Role, visited map[uuid.UUID]bool, out map[string]bool) error {
	if visited[role.ID] {
		return &apperrors.CircularHierarchyError{Role: role.Name}
	}
	visited[role.ID] = true

	perms, err := s.repo.GetRolePermissions(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("failed to get role permissions: %w", err)
	}
	for _, p := range perms {
		out[p.Codename] = true
	}

	if role.ParentID != nil {
		parent, err := s.repo.GetRole(ctx, *role.ParentID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("failed to get parent role: %w", err)
		}
		return s.collectRolePermissions(ctx, parent, visited, out)
	}
	return nil
}

func (s *Service) permissionByID(ctx context.Context, id uuid.UUID) (*model.Permission, error) {
	perms, err := s.repo.ListPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	for _, p := range perms {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

// HasPermission reports whether the user holds the permission named by
// a logical key such as "pharmacy.dispense". Superusers always pass.
func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, key string) (bool, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.IsSuperuser {
		return true, nil
	}
	if !user.IsActive {
		return false, nil
	}

	perms, err := s.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	codename := catalog.StoredCodename(key)
	if perms[codename] || perms[key] {
		return true, nil
	}
	return false, nil
}

// HasAnyPermission reports whether the user holds at least one of the
// keys.
func (s *Service) HasAnyPermission(ctx context.Context, userID uuid.UUID, keys ...string) (bool, error) {
	for _, key := range keys {
		ok, err := s.HasPermission(ctx, userID, key)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// HasAllPermissions reports whether the user holds every key.
func (s *Service) HasAllPermissions(ctx context.Context, userID uuid.UUID, keys ...string) (bool, error) {
	for _, key := range keys {
		ok, err := s.HasPermission(ctx, userID, key)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// InRole reports whether the user is assigned the named role, directly
// or through a descendant role.
func (s *Service) InRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.IsSuperuser && roleName == catalog.RoleAdmin {
		return true, nil
	}

	roles, err := s.repo.GetUserRoles(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user roles: %w", err)
	}
	visited := make(map[uuid.UUID]bool)
	for _, role := range roles {
		ok, err := s.roleOrAncestorNamed(ctx, role, roleName, visited)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) roleOrAncestorNamed(ctx context.Context, role *model.Role, name string, visited map[uuid.UUID]bool) (bool, error) {
	if visited[role.ID] {
		return false, nil
	}
	visited[role.ID] = true
	if role.Name == name {
		return true, nil
	}
	if role.ParentID == nil {
		return false, nil
	}
	parent, err := s.repo.GetRole(ctx, *role.ParentID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return s.roleOrAncestorNamed(ctx, parent, name, visited)
}

// AccessibleModules returns the permission categories the user can
// reach, for building navigation.
func (s *Service) AccessibleModules(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	modules := make(map[string]bool)
	if user.IsSuperuser {
		for _, d := range catalog.Definitions {
			modules[d.Category] = true
		}
	} else {
		perms, err := s.EffectivePermissions(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, d := range catalog.Definitions {
			if perms[d.StoredCodename] {
				modules[d.Category] = true
			}
		}
	}

	out := make([]string, 0, len(modules))
	for m := range modules {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// CheckCircularReference reports whether setting newParent as the
// role's parent would create a cycle.
func (s *Service) CheckCircularReference(ctx context.Context, roleID uuid.UUID, newParentID uuid.UUID) error {
	if roleID == newParentID {
		return &apperrors.CircularHierarchyError{Role: roleID.String()}
	}
	visited := map[uuid.UUID]bool{roleID: true}
	current := newParentID
	for {
		if visited[current] {
			return &apperrors.CircularHierarchyError{Role: current.String()}
		}
		visited[current] = true
		parent, err := s.repo.GetRole(ctx, current)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
}

// CreateRole validates and persists a new role, resolving the parent
// by name and attaching the requested permission keys.
func (s *Service) CreateRole(ctx context.Context, req *model.CreateRoleRequest) (*model.Role, error) {
	if req.Name == "" {
		return nil, apperrors.BadRequest("role name is required")
	}
	if existing, err := s.repo.GetRoleByName(ctx, req.Name); err == nil && existing != nil {
		return nil, apperrors.NewConflict(fmt.Sprintf("role %q already exists", req.Name))
	}

	role := &model.Role{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.ParentName != "" {
		parent, err := s.repo.GetRoleByName(ctx, req.ParentName)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve parent role: %w", err)
		}
		role.ParentID = &parent.ID
	}
	if _, wellKnown := catalog.RoleByName(req.Name); wellKnown {
		role.IsSystemRole = true
	}

	if err := s.repo.CreateRole(ctx, role); err != nil {
		return nil, err
	}

	for _, key := range req.Permissions {
		perm, err := s.repo.GetPermissionByCodename(ctx, catalog.StoredCodename(key))
		if err != nil {
			s.logger.Warn().Str("permission", key).Msg("skipping unknown permission on role create")
			continue
		}
		if err := s.repo.AssignPermissionToRole(ctx, role.ID, perm.ID); err != nil {
			return nil, err
		}
	}
	return role, nil
}

// SetRoleParent re-parents a role after checking for cycles.
func (s *Service) SetRoleParent(ctx context.Context, roleID uuid.UUID, parentID *uuid.UUID) error {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if parentID != nil {
		if err := s.CheckCircularReference(ctx, roleID, *parentID); err != nil {
			return err
		}
	}
	role.ParentID = parentID
	return s.repo.UpdateRole(ctx, role)
}

// AssignRole grants a named role to a user.
func (s *Service) AssignRole(ctx context.Context, userID uuid.UUID, roleName string, assignedBy *uuid.UUID) error {
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.repo.AssignRoleToUser(ctx, &model.UserRole{
		UserID:     userID,
		RoleID:     role.ID,
		AssignedBy: assignedBy,
	})
}

// RevokeRole removes a named role from a user.
func (s *Service) RevokeRole(ctx context.Context, userID uuid.UUID, roleName string) error {
	role, err := s.repo.GetRoleByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.repo.RevokeRoleFromUser(ctx, userID, role.ID)
}

// ListRolesWithPermissions returns every role with its resolved
// permission rows.
func (s *Service) ListRolesWithPermissions(ctx context.Context) ([]*model.RoleWithPermissions, error) {
	roles, err := s.repo.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		perms, err := s.repo.GetRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		rwp := &model.RoleWithPermissions{Role: *role}
		for _, p := range perms {
			rwp.Permissions = append(rwp.Permissions, *p)
		}
		out = append(out, rwp)
	}
	return out, nil
}
