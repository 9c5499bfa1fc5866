package records

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

type fakePatientRepo struct {
	repository.PatientRepository
	patients map[uuid.UUID]*model.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*model.Patient)}
}

func (f *fakePatientRepo) Create(_ context.Context, patient *model.Patient) error {
	patient.ID = uuid.New()
	f.patients[patient.ID] = patient
	return nil
}

func (f *fakePatientRepo) Get(_ context.Context, id uuid.UUID) (*model.Patient, error) {
	if p, ok := f.patients[id]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("patient not found")
}

func (f *fakePatientRepo) Update(_ context.Context, patient *model.Patient) error {
	if _, ok := f.patients[patient.ID]; !ok {
		return apperrors.NotFound("patient not found")
	}
	f.patients[patient.ID] = patient
	return nil
}

func (f *fakePatientRepo) List(_ context.Context, _ *model.BaseFilter) ([]*model.Patient, error) {
	out := make([]*model.Patient, 0, len(f.patients))
	for _, p := range f.patients {
		out = append(out, p)
	}
	return out, nil
}

func newTestService(patients *fakePatientRepo) *Service {
	return NewService(patients, nil, zerolog.Nop())
}

func strPtr(s string) *string { return &s }

func TestRegisterPatientDefaultsType(t *testing.T) {
	patients := newFakePatientRepo()
	svc := newTestService(patients)

	patient := &model.Patient{FirstName: "  Ada ", LastName: "Okafor"}
	require.NoError(t, svc.RegisterPatient(context.Background(), patient))

	assert.Equal(t, model.PatientTypeRegular, patient.PatientType)
	assert.Equal(t, "Ada", patient.FirstName)
	assert.True(t, patient.IsActive)
	assert.NotEqual(t, uuid.Nil, patient.ID)
}

func TestRegisterPatientRequiresName(t *testing.T) {
	svc := newTestService(newFakePatientRepo())

	err := svc.RegisterPatient(context.Background(), &model.Patient{FirstName: "   "})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestRegisterPatientRejectsUnknownType(t *testing.T) {
	svc := newTestService(newFakePatientRepo())

	err := svc.RegisterPatient(context.Background(), &model.Patient{
		FirstName:   "Ada",
		LastName:    "Okafor",
		PatientType: "walk-in",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestRegisterPatientNHIARequiresNumber(t *testing.T) {
	svc := newTestService(newFakePatientRepo())

	err := svc.RegisterPatient(context.Background(), &model.Patient{
		FirstName:   "Ada",
		LastName:    "Okafor",
		PatientType: model.PatientTypeNHIA,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	err = svc.RegisterPatient(context.Background(), &model.Patient{
		FirstName:   "Ada",
		LastName:    "Okafor",
		PatientType: model.PatientTypeNHIA,
		NHIANumber:  strPtr("NHIA-0042"),
	})
	require.NoError(t, err)
}

func TestUpdatePatientKeepsNHIAType(t *testing.T) {
	patients := newFakePatientRepo()
	svc := newTestService(patients)

	patient := &model.Patient{
		FirstName:   "Ada",
		LastName:    "Okafor",
		PatientType: model.PatientTypeNHIA,
		NHIANumber:  strPtr("NHIA-0042"),
	}
	require.NoError(t, svc.RegisterPatient(context.Background(), patient))

	downgraded := *patient
	downgraded.PatientType = model.PatientTypeRegular
	err := svc.UpdatePatient(context.Background(), &downgraded)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))

	patient.Phone = strPtr("+2348030000000")
	require.NoError(t, svc.UpdatePatient(context.Background(), patient))
	got, err := svc.GetPatient(context.Background(), patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "+2348030000000", *got.Phone)
}
