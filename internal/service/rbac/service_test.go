package rbac

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhq/hms-core/internal/catalog"
	"github.com/medhq/hms-core/internal/model"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

type fakeRBACRepo struct {
	roles       map[uuid.UUID]*model.Role
	rolePerms   map[uuid.UUID][]*model.Permission
	userRoles   map[uuid.UUID][]uuid.UUID
	userPerms   map[uuid.UUID][]*model.UserPermission
	permissions []*model.Permission
}

func newFakeRBACRepo() *fakeRBACRepo {
	return &fakeRBACRepo{
		roles:     make(map[uuid.UUID]*model.Role),
		rolePerms: make(map[uuid.UUID][]*model.Permission),
		userRoles: make(map[uuid.UUID][]uuid.UUID),
		userPerms: make(map[uuid.UUID][]*model.UserPermission),
	}
}

func (f *fakeRBACRepo) addRole(name string, parentID *uuid.UUID, codenames ...string) *model.Role {
	role := &model.Role{Base: model.Base{ID: uuid.New()}, Name: name, ParentID: parentID}
	f.roles[role.ID] = role
	for _, cn := range codenames {
		perm := &model.Permission{Base: model.Base{ID: uuid.New()}, Codename: cn}
		f.rolePerms[role.ID] = append(f.rolePerms[role.ID], perm)
		f.permissions = append(f.permissions, perm)
	}
	return role
}

func (f *fakeRBACRepo) CreateRole(_ context.Context, role *model.Role) error {
	role.ID = uuid.New()
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRBACRepo) GetRole(_ context.Context, id uuid.UUID) (*model.Role, error) {
	if r, ok := f.roles[id]; ok {
		return r, nil
	}
	return nil, apperrors.NotFound("role not found")
}

func (f *fakeRBACRepo) GetRoleByName(_ context.Context, name string) (*model.Role, error) {
	for _, r := range f.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return nil, apperrors.NotFound("role not found")
}

func (f *fakeRBACRepo) UpdateRole(_ context.Context, role *model.Role) error {
	f.roles[role.ID] = role
	return nil
}

func (f *fakeRBACRepo) DeleteRole(_ context.Context, id uuid.UUID) error {
	delete(f.roles, id)
	return nil
}

func (f *fakeRBACRepo) ListRoles(_ context.Context) ([]*model.Role, error) {
	var out []*model.Role
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeRBACRepo) CreatePermission(_ context.Context, perm *model.Permission) error {
	perm.ID = uuid.New()
	f.permissions = append(f.permissions, perm)
	return nil
}

func (f *fakeRBACRepo) GetPermissionByCodename(_ context.Context, codename string) (*model.Permission, error) {
	for _, p := range f.permissions {
		if p.Codename == codename {
			return p, nil
		}
	}
	return nil, apperrors.NotFound("permission not found")
}

func (f *fakeRBACRepo) ListPermissions(_ context.Context) ([]*model.Permission, error) {
	return f.permissions, nil
}

func (f *fakeRBACRepo) AssignPermissionToRole(_ context.Context, roleID, permissionID uuid.UUID) error {
	for _, p := range f.permissions {
		if p.ID == permissionID {
			f.rolePerms[roleID] = append(f.rolePerms[roleID], p)
		}
	}
	return nil
}

func (f *fakeRBACRepo) RevokePermissionFromRole(_ context.Context, roleID, permissionID uuid.UUID) error {
	kept := f.rolePerms[roleID][:0]
	for _, p := range f.rolePerms[roleID] {
		if p.ID != permissionID {
			kept = append(kept, p)
		}
	}
	f.rolePerms[roleID] = kept
	return nil
}

func (f *fakeRBACRepo) GetRolePermissions(_ context.Context, roleID uuid.UUID) ([]*model.Permission, error) {
	return f.rolePerms[roleID], nil
}

func (f *fakeRBACRepo) AssignRoleToUser(_ context.Context, ur *model.UserRole) error {
	f.userRoles[ur.UserID] = append(f.userRoles[ur.UserID], ur.RoleID)
	return nil
}

func (f *fakeRBACRepo) RevokeRoleFromUser(_ context.Context, userID, roleID uuid.UUID) error {
	kept := f.userRoles[userID][:0]
	for _, id := range f.userRoles[userID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	f.userRoles[userID] = kept
	return nil
}

func (f *fakeRBACRepo) GetUserRoles(_ context.Context, userID uuid.UUID) ([]*model.Role, error) {
	var out []*model.Role
	for _, id := range f.userRoles[userID] {
		if r, ok := f.roles[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRBACRepo) GetUserPermissions(_ context.Context, userID uuid.UUID) ([]*model.UserPermission, error) {
	return f.userPerms[userID], nil
}

func (f *fakeRBACRepo) CountRoleUsers(_ context.Context, roleID uuid.UUID) (int, error) {
	count := 0
	for _, ids := range f.userRoles {
		for _, id := range ids {
			if id == roleID {
				count++
			}
		}
	}
	return count, nil
}

func (f *fakeRBACRepo) CountRoleChildren(_ context.Context, roleID uuid.UUID) (int, error) {
	count := 0
	for _, r := range f.roles {
		if r.ParentID != nil && *r.ParentID == roleID {
			count++
		}
	}
	return count, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (f *fakeUserRepo) addUser(superuser bool) *model.User {
	u := &model.User{Base: model.Base{ID: uuid.New()}, Username: "u-" + uuid.NewString()[:8], IsActive: true, IsSuperuser: superuser}
	f.users[u.ID] = u
	return u
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	u.ID = uuid.New()
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperrors.NotFound("user not found")
}

func (f *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	f.users[u.ID] = u
	return nil
}

func (f *fakeUserRepo) List(_ context.Context, _ *model.UserFilter) ([]*model.User, error) {
	var out []*model.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) ListWithoutRoles(_ context.Context) ([]*model.User, error) { return nil, nil }
func (f *fakeUserRepo) ListWithLegacyRole(_ context.Context) ([]*model.User, error) {
	return nil, nil
}
func (f *fakeUserRepo) ClearLegacyRole(_ context.Context, _ uuid.UUID) error { return nil }

func newTestService() (*Service, *fakeRBACRepo, *fakeUserRepo) {
	repo := newFakeRBACRepo()
	users := newFakeUserRepo()
	return NewService(repo, users, zerolog.Nop()), repo, users
}

func TestHasPermission(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	role := repo.addRole("pharmacist", nil, "pharmacy.view_dispensary", "pharmacy.dispense_medication")
	user := users.addUser(false)
	repo.userRoles[user.ID] = []uuid.UUID{role.ID}

	ok, err := svc.HasPermission(ctx, user.ID, "pharmacy.view")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(ctx, user.ID, "billing.view")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionSuperuser(t *testing.T) {
	svc, _, users := newTestService()
	user := users.addUser(true)

	ok, err := svc.HasPermission(context.Background(), user.ID, "anything.at_all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasPermissionInactiveUser(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	role := repo.addRole("doctor", nil, "patients.view_patient")
	user := users.addUser(false)
	user.IsActive = false
	repo.userRoles[user.ID] = []uuid.UUID{role.ID}

	ok, err := svc.HasPermission(ctx, user.ID, "patients.view")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEffectivePermissionsInheritance(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	parent := repo.addRole("clinical_staff", nil, "patients.view_patient")
	child := repo.addRole("junior_doctor", &parent.ID, "consultations.view_consultation")
	user := users.addUser(false)
	repo.userRoles[user.ID] = []uuid.UUID{child.ID}

	perms, err := svc.EffectivePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, perms["patients.view_patient"])
	assert.True(t, perms["consultations.view_consultation"])
}

func TestEffectivePermissionsCycleSurfacesError(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	a := repo.addRole("role_a", nil, "patients.view_patient")
	b := repo.addRole("role_b", &a.ID, "vitals.view_vitals")
	a.ParentID = &b.ID

	user := users.addUser(false)
	repo.userRoles[user.ID] = []uuid.UUID{a.ID}

	_, err := svc.EffectivePermissions(ctx, user.ID)
	var circular *apperrors.CircularHierarchyError
	require.Error(t, err)
	assert.True(t, apperrors.As(err, &circular))
}

func TestEffectivePermissionsSharedAncestor(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	base := repo.addRole("clinical_base", nil, "patients.view_patient")
	ward := repo.addRole("ward_nurse", &base.ID, "vitals.view_vitals")
	triage := repo.addRole("triage_nurse", &base.ID, "consultations.view_consultation")

	user := users.addUser(false)
	repo.userRoles[user.ID] = []uuid.UUID{ward.ID, triage.ID}

	perms, err := svc.EffectivePermissions(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, perms["patients.view_patient"])
	assert.True(t, perms["vitals.view_vitals"])
	assert.True(t, perms["consultations.view_consultation"])
}

func TestDirectDenialOverridesRoleGrant(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	role := repo.addRole("nurse", nil, "patients.view_patient")
	user := users.addUser(false)
	repo.userRoles[user.ID] = []uuid.UUID{role.ID}

	denied := repo.rolePerms[role.ID][0]
	repo.userPerms[user.ID] = []*model.UserPermission{
		{UserID: user.ID, PermissionID: denied.ID, Granted: false},
	}

	ok, err := svc.HasPermission(ctx, user.ID, "patients.view")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInRoleThroughHierarchy(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	parent := repo.addRole("doctor", nil)
	child := repo.addRole("consultant", &parent.ID)
	user := users.addUser(false)
	repo.userRoles[user.ID] = []uuid.UUID{child.ID}

	ok, err := svc.InRole(ctx, user.ID, "doctor")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.InRole(ctx, user.ID, "nurse")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInRoleSuperuserIsAdmin(t *testing.T) {
	svc, _, users := newTestService()
	user := users.addUser(true)

	ok, err := svc.InRole(context.Background(), user.ID, catalog.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckCircularReference(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	a := repo.addRole("a", nil)
	b := repo.addRole("b", &a.ID)
	c := repo.addRole("c", &b.ID)

	// Making a's parent c would close the loop a -> c -> b -> a.
	err := svc.CheckCircularReference(ctx, a.ID, c.ID)
	var circErr *apperrors.CircularHierarchyError
	require.Error(t, err)
	assert.True(t, apperrors.As(err, &circErr))

	// Re-parenting c under a directly is fine.
	assert.NoError(t, svc.CheckCircularReference(ctx, c.ID, a.ID))

	// Self-parenting is always a cycle.
	assert.Error(t, svc.CheckCircularReference(ctx, a.ID, a.ID))
}

func TestGetUserRolesIncludesUnknownRoles(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	known := repo.addRole("doctor", nil)
	unknown := repo.addRole("ward_coordinator", nil)
	user := users.addUser(false)
	repo.userRoles[user.ID] = []uuid.UUID{known.ID, unknown.ID}

	names, err := svc.GetUserRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doctor", "ward_coordinator"}, names)
}

func TestAccessibleModules(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	role := repo.addRole("pharmacist", nil, "pharmacy.view_dispensary")
	user := users.addUser(false)
	repo.userRoles[user.ID] = []uuid.UUID{role.ID}

	modules, err := svc.AccessibleModules(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, modules, "pharmacy")
	assert.NotContains(t, modules, "billing")
}

func TestGetUserRolesSuperuserGetsAllWellKnown(t *testing.T) {
	svc, _, users := newTestService()
	ctx := context.Background()

	admin := users.addUser(true)

	names, err := svc.GetUserRoles(ctx, admin.ID)
	require.NoError(t, err)
	assert.Len(t, names, len(catalog.Roles))
	assert.Contains(t, names, catalog.RoleAdmin)
	assert.Contains(t, names, catalog.RolePharmacist)
}

func TestGetUserRolesMergesLegacyAndAncestors(t *testing.T) {
	svc, repo, users := newTestService()
	ctx := context.Background()

	parent := repo.addRole("clinical_staff", nil)
	child := repo.addRole("doctor", &parent.ID)
	user := users.addUser(false)
	legacy := "records_clerk"
	user.LegacyRole = &legacy
	repo.userRoles[user.ID] = []uuid.UUID{child.ID}

	names, err := svc.GetUserRoles(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"doctor", "clinical_staff", "records_clerk"}, names)
}
