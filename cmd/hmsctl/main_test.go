package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

type fakeUserRepo struct {
	repository.UserRepository
	users map[string]*model.User
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	if u, ok := f.users[username]; ok {
		return u, nil
	}
	return nil, apperrors.NotFound("user not found")
}

type fakePharmacyRepo struct {
	repository.PharmacyRepository
	dispensaries map[uuid.UUID]*model.Dispensary
}

func (f *fakePharmacyRepo) GetDispensary(_ context.Context, id uuid.UUID) (*model.Dispensary, error) {
	if d, ok := f.dispensaries[id]; ok {
		return d, nil
	}
	return nil, apperrors.NotFound("dispensary not found")
}

type fakeAssignmentRepo struct {
	repository.AssignmentRepository
	assignments []*model.PharmacistAssignment
}

func (f *fakeAssignmentRepo) Create(_ context.Context, a *model.PharmacistAssignment) error {
	a.ID = uuid.New()
	if a.IsActive {
		for _, existing := range f.assignments {
			if existing.UserID == a.UserID {
				existing.IsActive = false
			}
		}
	}
	f.assignments = append(f.assignments, a)
	return nil
}

func (f *fakeAssignmentRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	for _, a := range f.assignments {
		if a.ID == id {
			a.IsActive = false
			return nil
		}
	}
	return apperrors.NotFound("assignment not found")
}

func (f *fakeAssignmentRepo) GetActive(_ context.Context, userID, dispensaryID uuid.UUID) (*model.PharmacistAssignment, error) {
	for _, a := range f.assignments {
		if a.UserID == userID && a.DispensaryID == dispensaryID && a.IsActive {
			return a, nil
		}
	}
	return nil, apperrors.NotFound("assignment not found")
}

func (f *fakeAssignmentRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]*model.PharmacistAssignment, error) {
	var out []*model.PharmacistAssignment
	for _, a := range f.assignments {
		if a.UserID == userID && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

type cliEnv struct {
	assignments *fakeAssignmentRepo
	users       *fakeUserRepo
	pharmacy    *fakePharmacyRepo
	userID      uuid.UUID
	dispA       uuid.UUID
	dispB       uuid.UUID
}

func newCLIEnv() *cliEnv {
	userID := uuid.New()
	dispA := uuid.New()
	dispB := uuid.New()
	return &cliEnv{
		assignments: &fakeAssignmentRepo{},
		users: &fakeUserRepo{users: map[string]*model.User{
			"amina": {Base: model.Base{ID: userID}, Username: "amina"},
		}},
		pharmacy: &fakePharmacyRepo{dispensaries: map[uuid.UUID]*model.Dispensary{
			dispA: {Base: model.Base{ID: dispA}, Name: "Main Dispensary"},
			dispB: {Base: model.Base{ID: dispB}, Name: "Annex Dispensary"},
		}},
		userID: userID,
		dispA:  dispA,
		dispB:  dispB,
	}
}

func (e *cliEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	return runAssignPharmacist(context.Background(), e.assignments, e.users, e.pharmacy, zerolog.Nop(), args)
}

func TestAssignPharmacistCreatesWithDates(t *testing.T) {
	e := newCLIEnv()
	err := e.run(t, "-user", "amina", "-dispensary", e.dispA.String(),
		"-start-date", "2026-09-01", "-end-date", "2026-12-31")
	require.NoError(t, err)

	require.Len(t, e.assignments.assignments, 1)
	a := e.assignments.assignments[0]
	assert.True(t, a.IsActive)
	require.NotNil(t, a.StartDate)
	require.NotNil(t, a.EndDate)
	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), *a.StartDate)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), *a.EndDate)
}

func TestAssignPharmacistRejectsInvertedDates(t *testing.T) {
	e := newCLIEnv()
	err := e.run(t, "-user", "amina", "-dispensary", e.dispA.String(),
		"-start-date", "2026-12-31", "-end-date", "2026-09-01")
	require.Error(t, err)
	assert.Empty(t, e.assignments.assignments)
}

func TestAssignPharmacistRemove(t *testing.T) {
	e := newCLIEnv()
	require.NoError(t, e.run(t, "-user", "amina", "-dispensary", e.dispA.String()))

	require.NoError(t, e.run(t, "-user", "amina", "-dispensary", e.dispA.String(), "-remove"))
	_, err := e.assignments.GetActive(context.Background(), e.userID, e.dispA)
	assert.Error(t, err)

	// Removing again reports the missing assignment.
	err = e.run(t, "-user", "amina", "-dispensary", e.dispA.String(), "-remove")
	assert.Error(t, err)
}

func TestAssignPharmacistClearAll(t *testing.T) {
	e := newCLIEnv()
	// Seed two active rows directly; the supersede rule normally
	// prevents this, clear-all must still sweep both.
	e.assignments.assignments = []*model.PharmacistAssignment{
		{Base: model.Base{ID: uuid.New()}, UserID: e.userID, DispensaryID: e.dispA, IsActive: true},
		{Base: model.Base{ID: uuid.New()}, UserID: e.userID, DispensaryID: e.dispB, IsActive: true},
	}

	require.NoError(t, e.run(t, "-user", "amina", "-clear-all"))
	active, err := e.assignments.ListForUser(context.Background(), e.userID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestAssignPharmacistListDoesNotMutate(t *testing.T) {
	e := newCLIEnv()
	require.NoError(t, e.run(t, "-user", "amina", "-dispensary", e.dispA.String()))

	require.NoError(t, e.run(t, "-user", "amina", "-list"))
	active, err := e.assignments.ListForUser(context.Background(), e.userID)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestSplitRoleFilter(t *testing.T) {
	assert.Nil(t, splitRoleFilter("", nil))
	assert.Equal(t, []string{"pharmacist", "nurse"}, splitRoleFilter("pharmacist, nurse", nil))
	assert.Equal(t, []string{"pharmacist", "doctor"}, splitRoleFilter("pharmacist", []string{"doctor"}))
}

func TestParseDateFlag(t *testing.T) {
	got, err := parseDateFlag("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseDateFlag("2026-08-31")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2026, got.Year())

	_, err = parseDateFlag("31/08/2026")
	assert.Error(t, err)
}
