package sync

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/catalog"
	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

// Service reconciles database state with the code-defined permission
// catalog. Every operation is idempotent and safe to re-run.
type Service struct {
	rbac   repository.RBACRepository
	users  repository.UserRepository
	inv    repository.InventoryRepository
	logger zerolog.Logger
}

func NewService(rbac repository.RBACRepository, users repository.UserRepository, inv repository.InventoryRepository, logger zerolog.Logger) *Service {
	return &Service{rbac: rbac, users: users, inv: inv, logger: logger}
}

// PermissionSyncReport summarizes a createMissingPermissions run.
type PermissionSyncReport struct {
	Created  []string `json:"created"`
	Existing int      `json:"existing"`
	Errors   []string `json:"errors"`
	DryRun   bool     `json:"dry_run"`
}

// CreateMissingPermissions compares the catalog to stored permission
// rows and creates any that are absent.
func (s *Service) CreateMissingPermissions(ctx context.Context, dryRun, onlyCustom bool) (*PermissionSyncReport, error) {
	stored, err := s.rbac.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	existing := make(map[string]bool, len(stored))
	for _, p := range stored {
		existing[p.Codename] = true
	}

	report := &PermissionSyncReport{DryRun: dryRun}
	for _, def := range catalog.Definitions {
		if onlyCustom && !def.IsCustom {
			continue
		}
		if existing[def.StoredCodename] {
			report.Existing++
			continue
		}
		report.Created = append(report.Created, def.StoredCodename)
		if dryRun {
			continue
		}
		perm := &model.Permission{
			Name:     def.Description,
			Codename: def.StoredCodename,
			Category: def.Category,
			IsCustom: def.IsCustom,
		}
		if err := s.rbac.CreatePermission(ctx, perm); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", def.StoredCodename, err))
		}
	}
	s.logger.Info().
		Int("created", len(report.Created)).
		Int("existing", report.Existing).
		Bool("dry_run", dryRun).
		Msg("permission sync complete")
	return report, nil
}

// RoleSyncEntry reports drift for one role.
type RoleSyncEntry struct {
	Role    string   `json:"role"`
	Missing []string `json:"missing"`
	Extra   []string `json:"extra"`
	Fixed   bool     `json:"fixed"`
}

// RoleSyncReport summarizes a syncRolePermissions run.
type RoleSyncReport struct {
	Entries []RoleSyncEntry `json:"entries"`
	DryRun  bool            `json:"dry_run"`
}

// SyncRolePermissions compares each well-known role's stored grants to
// the catalog. With fix, missing grants are added and extras revoked.
func (s *Service) SyncRolePermissions(ctx context.Context, fix, dryRun bool, roleFilter []string) (*RoleSyncReport, error) {
	filter := make(map[string]bool, len(roleFilter))
	for _, name := range roleFilter {
		filter[name] = true
	}

	report := &RoleSyncReport{DryRun: dryRun}
	for _, def := range catalog.Roles {
		if len(filter) > 0 && !filter[def.Name] {
			continue
		}
		role, err := s.rbac.GetRoleByName(ctx, def.Name)
		if apperrors.IsNotFound(err) {
			report.Entries = append(report.Entries, RoleSyncEntry{
				Role:    def.Name,
				Missing: []string{"<role itself>"},
			})
			continue
		}
		if err != nil {
			return nil, err
		}

		wanted := make(map[string]bool, len(def.Permissions))
		for _, key := range def.Permissions {
			wanted[catalog.StoredCodename(key)] = true
		}
		stored, err := s.rbac.GetRolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		have := make(map[string]*model.Permission, len(stored))
		for _, p := range stored {
			have[p.Codename] = p
		}

		entry := RoleSyncEntry{Role: def.Name}
		for codename := range wanted {
			if _, ok := have[codename]; !ok {
				entry.Missing = append(entry.Missing, codename)
			}
		}
		for codename := range have {
			if !wanted[codename] {
				entry.Extra = append(entry.Extra, codename)
			}
		}
		sort.Strings(entry.Missing)
		sort.Strings(entry.Extra)

		if fix && !dryRun && (len(entry.Missing) > 0 || len(entry.Extra) > 0) {
			if err := s.fixRole(ctx, role, entry, have); err != nil {
				return nil, err
			}
			entry.Fixed = true
		}
		if len(entry.Missing) > 0 || len(entry.Extra) > 0 || entry.Fixed {
			report.Entries = append(report.Entries, entry)
		}
	}
	return report, nil
}

func (s *Service) fixRole(ctx context.Context, role *model.Role, entry RoleSyncEntry, have map[string]*model.Permission) error {
	for _, codename := range entry.Missing {
		perm, err := s.rbac.GetPermissionByCodename(ctx, codename)
		if apperrors.IsNotFound(err) {
			s.logger.Warn().Str("codename", codename).Msg("permission row missing, run create-missing-permissions first")
			continue
		}
		if err != nil {
			return err
		}
		if err := s.rbac.AssignPermissionToRole(ctx, role.ID, perm.ID); err != nil {
			return err
		}
	}
	for _, codename := range entry.Extra {
		if err := s.rbac.RevokePermissionFromRole(ctx, role.ID, have[codename].ID); err != nil {
			return err
		}
	}
	return nil
}

// PopulateRoles creates the well-known roles from the catalog and
// wires their permissions. Existing roles are left in place; with
// skipPermissions only the role rows are ensured.
func (s *Service) PopulateRoles(ctx context.Context, dryRun, skipPermissions bool) (*RoleSyncReport, error) {
	report := &RoleSyncReport{DryRun: dryRun}
	for _, def := range catalog.Roles {
		_, err := s.rbac.GetRoleByName(ctx, def.Name)
		if err == nil {
			continue
		}
		if !apperrors.IsNotFound(err) {
			return nil, err
		}
		entry := RoleSyncEntry{Role: def.Name, Missing: []string{"<role itself>"}}
		if !dryRun {
			role := &model.Role{
				Name:         def.Name,
				Description:  def.Description,
				IsSystemRole: true,
			}
			if err := s.rbac.CreateRole(ctx, role); err != nil {
				return nil, err
			}
			entry.Fixed = true
		}
		report.Entries = append(report.Entries, entry)
	}
	if skipPermissions || dryRun {
		return report, nil
	}
	sub, err := s.SyncRolePermissions(ctx, true, false, nil)
	if err != nil {
		return nil, err
	}
	report.Entries = append(report.Entries, sub.Entries...)
	return report, nil
}

// ValidationIssue is one finding from ValidateSystem.
type ValidationIssue struct {
	Check   string `json:"check"`
	Subject string `json:"subject"`
	Detail  string `json:"detail"`
	Fixed   bool   `json:"fixed"`
}

// ValidationReport collects all findings of a validateSystem run.
type ValidationReport struct {
	Issues []ValidationIssue `json:"issues"`
	Checks []string          `json:"checks"`
}

func (r *ValidationReport) add(check, subject, detail string, fixed bool) {
	r.Issues = append(r.Issues, ValidationIssue{Check: check, Subject: subject, Detail: detail, Fixed: fixed})
}

// ValidateSystem runs the structural health checks. With fix, circular
// parent links are cut and missing well-known roles created.
func (s *Service) ValidateSystem(ctx context.Context, fix bool) (*ValidationReport, error) {
	report := &ValidationReport{}

	report.Checks = append(report.Checks, "catalog")
	_, catErrs, catWarnings := catalog.Validate()
	for _, msg := range catErrs {
		report.add("catalog", "definitions", msg, false)
	}
	for _, msg := range catWarnings {
		s.logger.Warn().Str("check", "catalog").Msg(msg)
	}

	roles, err := s.rbac.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}

	report.Checks = append(report.Checks, "circular_hierarchy")
	for _, role := range roles {
		if cycle := detectCycle(role, byID); cycle != "" {
			fixed := false
			if fix {
				role.ParentID = nil
				if err := s.rbac.UpdateRole(ctx, role); err != nil {
					return nil, err
				}
				fixed = true
			}
			report.add("circular_hierarchy", role.Name, cycle, fixed)
		}
	}

	report.Checks = append(report.Checks, "orphaned_roles")
	for _, role := range roles {
		if role.IsSystemRole {
			continue
		}
		userCount, err := s.rbac.CountRoleUsers(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		childCount, err := s.rbac.CountRoleChildren(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		if userCount == 0 && childCount == 0 {
			report.add("orphaned_roles", role.Name, "no users and no child roles", false)
		}
	}

	report.Checks = append(report.Checks, "users_without_roles")
	withoutRoles, err := s.users.ListWithoutRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range withoutRoles {
		report.add("users_without_roles", u.Username, "active user has no role assignment", false)
	}

	report.Checks = append(report.Checks, "legacy_roles")
	legacy, err := s.users.ListWithLegacyRole(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range legacy {
		detail := "legacy profile role still set"
		if u.LegacyRole != nil {
			detail = "legacy profile role still set: " + *u.LegacyRole
		}
		report.add("legacy_roles", u.Username, detail, false)
	}

	report.Checks = append(report.Checks, "well_known_roles")
	existing := make(map[string]bool, len(roles))
	for _, r := range roles {
		existing[r.Name] = true
	}
	for _, def := range catalog.Roles {
		if existing[def.Name] {
			continue
		}
		fixed := false
		if fix {
			role := &model.Role{Name: def.Name, Description: def.Description, IsSystemRole: true}
			if err := s.rbac.CreateRole(ctx, role); err != nil {
				return nil, err
			}
			fixed = true
		}
		report.add("well_known_roles", def.Name, "well-known role missing", fixed)
	}

	report.Checks = append(report.Checks, "role_permissions")
	drift, err := s.SyncRolePermissions(ctx, false, true, nil)
	if err != nil {
		return nil, err
	}
	for _, entry := range drift.Entries {
		if len(entry.Missing) > 0 {
			report.add("role_permissions", entry.Role, fmt.Sprintf("missing %d grants", len(entry.Missing)), false)
		}
		if len(entry.Extra) > 0 {
			report.add("role_permissions", entry.Role, fmt.Sprintf("%d grants beyond catalog", len(entry.Extra)), false)
		}
	}

	return report, nil
}

// detectCycle walks parent links from role and reports the cycle path
// if the walk revisits a node.
func detectCycle(role *model.Role, byID map[uuid.UUID]*model.Role) string {
	visited := map[uuid.UUID]bool{role.ID: true}
	path := role.Name
	current := role
	for current.ParentID != nil {
		parent, ok := byID[*current.ParentID]
		if !ok {
			return ""
		}
		path += " -> " + parent.Name
		if visited[parent.ID] {
			return path
		}
		visited[parent.ID] = true
		current = parent
	}
	return ""
}

// MergeReport summarizes a duplicate-lot cleanup.
type MergeReport struct {
	Groups  int      `json:"groups"`
	Removed []string `json:"removed"`
	DryRun  bool     `json:"dry_run"`
}

// MergeDuplicateActiveLots collapses active store rows sharing the
// same (store, medication, batch, expiry, cost) key. The lowest-id row
// wins; duplicate quantities are discarded, not summed, because the
// rows arise from double inserts rather than legitimate splits.
func (s *Service) MergeDuplicateActiveLots(ctx context.Context, dryRun bool) (*MergeReport, error) {
	groups, err := s.inv.FindDuplicateActiveLots(ctx)
	if err != nil {
		return nil, err
	}
	report := &MergeReport{DryRun: dryRun}
	for key, lots := range groups {
		if len(lots) < 2 {
			continue
		}
		report.Groups++
		sort.Slice(lots, func(i, j int) bool {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		})
		keep := lots[0]
		for _, lot := range lots[1:] {
			report.Removed = append(report.Removed, lot.ID.String())
			if dryRun {
				continue
			}
			if err := s.inv.WithTx(ctx, func(tx *sqlx.Tx) error {
				return s.inv.DeleteActiveLot(ctx, tx, lot.ID)
			}); err != nil {
				return nil, err
			}
		}
		s.logger.Info().
			Str("key", key).
			Str("kept", keep.ID.String()).
			Int("duplicates", len(lots)-1).
			Bool("dry_run", dryRun).
			Msg("duplicate active lots coalesced")
	}
	return report, nil
}
