package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhq/hms-core/internal/model"
)

func seedSpecialtyRecord(repo *fakeClinicalRepo, patientID uuid.UUID, kind string) *model.SpecialtyRecord {
	sr := &model.SpecialtyRecord{
		Base:      model.Base{ID: uuid.New()},
		Kind:      kind,
		PatientID: patientID,
	}
	repo.specialty[sr.ID] = sr
	return sr
}

func TestRequiresAuthorizationNonNHIA(t *testing.T) {
	svc, _, clinical, patients := newTestService()
	p := &model.Patient{Base: model.Base{ID: uuid.New()}, PatientType: model.PatientTypeRegular}
	patients.patients[p.ID] = p
	ref := pendingReferral(clinical, p.ID, "ent")

	required, reason, err := svc.RequiresAuthorization(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.False(t, required)
	assert.Equal(t, "patient is not an NHIA patient", reason)
}

func TestRequiresAuthorizationValidCodeShortCircuits(t *testing.T) {
	svc, _, clinical, patients := newTestService()
	patient := nhiaPatient(patients)
	ref := pendingReferral(clinical, patient.ID, "cardiology")

	_, err := svc.GenerateCode(context.Background(), &GenerateRequest{
		RecordKind: "referral", RecordID: ref.ID, IssuedBy: uuid.New(),
	})
	require.NoError(t, err)

	required, reason, err := svc.RequiresAuthorization(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.False(t, required)
	assert.Equal(t, "record already has a valid authorization code", reason)
}

func TestRequiresAuthorizationInheritsConsultationFlag(t *testing.T) {
	svc, _, clinical, patients := newTestService()
	patient := nhiaPatient(patients)

	consultation := &model.Consultation{
		Base:      model.Base{ID: uuid.New()},
		PatientID: patient.ID,
		AuthorizationFields: model.AuthorizationFields{
			RequiresAuthorization: true,
		},
	}
	clinical.consultations[consultation.ID] = consultation

	ref := &model.Referral{
		Base:           model.Base{ID: uuid.New()},
		PatientID:      patient.ID,
		ConsultationID: &consultation.ID,
		Specialty:      "ent",
	}
	clinical.referrals[ref.ID] = ref

	required, reason, err := svc.RequiresAuthorization(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.True(t, required)
	assert.Equal(t, "linked consultation requires authorization", reason)
}

func TestRequiresAuthorizationSpecialtyDefault(t *testing.T) {
	svc, _, clinical, patients := newTestService()
	patient := nhiaPatient(patients)
	sr := seedSpecialtyRecord(clinical, patient.ID, model.SpecialtyDental)

	required, reason, err := svc.RequiresAuthorization(context.Background(), model.SpecialtyDental, sr.ID)
	require.NoError(t, err)
	assert.True(t, required)
	assert.Equal(t, "NHIA patient in a specialty unit", reason)

	// A plain referral without any trigger stays exempt.
	ref := &model.Referral{Base: model.Base{ID: uuid.New()}, PatientID: patient.ID, Specialty: "ent"}
	clinical.referrals[ref.ID] = ref
	required, _, err = svc.RequiresAuthorization(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.False(t, required)
}

func TestCreateAuthorizationRequestIdempotent(t *testing.T) {
	svc, _, clinical, patients := newTestService()
	patient := nhiaPatient(patients)
	ref := pendingReferral(clinical, patient.ID, "oncology")
	requester := uuid.New()

	require.NoError(t, svc.CreateAuthorizationRequest(context.Background(), &RequestInput{
		RecordKind: "referral", RecordID: ref.ID, RequestedBy: requester, Notes: "urgent case",
	}))
	assert.Equal(t, model.RecordAuthPending, clinical.stamped[ref.ID])
	require.Len(t, clinical.notes[ref.ID], 1)
	assert.Contains(t, clinical.notes[ref.ID][0], requester.String())
	assert.Contains(t, clinical.notes[ref.ID][0], "urgent case")

	// A second request finds the record already pending and changes
	// nothing.
	require.NoError(t, svc.CreateAuthorizationRequest(context.Background(), &RequestInput{
		RecordKind: "referral", RecordID: ref.ID, RequestedBy: uuid.New(),
	}))
	assert.Equal(t, model.RecordAuthPending, clinical.stamped[ref.ID])
	assert.Len(t, clinical.notes[ref.ID], 1)
}

func TestGetAuthorizationStatusLifecycle(t *testing.T) {
	svc, codes, clinical, patients := newTestService()
	patient := nhiaPatient(patients)
	ref := pendingReferral(clinical, patient.ID, "cardiology")

	status, err := svc.GetAuthorizationStatus(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecordAuthRequired, status)

	require.NoError(t, svc.CreateAuthorizationRequest(context.Background(), &RequestInput{
		RecordKind: "referral", RecordID: ref.ID, RequestedBy: uuid.New(),
	}))
	status, err = svc.GetAuthorizationStatus(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecordAuthPending, status)

	code, err := svc.GenerateCode(context.Background(), &GenerateRequest{
		RecordKind: "referral", RecordID: ref.ID, IssuedBy: uuid.New(),
	})
	require.NoError(t, err)
	status, err = svc.GetAuthorizationStatus(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecordAuthAuthorized, status)

	// Past-expiry codes downgrade the record to expired.
	codes.byID[code.ID].ExpiresAt = time.Now().Add(-time.Hour)
	status, err = svc.GetAuthorizationStatus(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecordAuthExpired, status)
}

func TestGetAuthorizationStatusNotRequired(t *testing.T) {
	svc, _, clinical, patients := newTestService()
	patient := nhiaPatient(patients)
	ref := &model.Referral{Base: model.Base{ID: uuid.New()}, PatientID: patient.ID, Specialty: "ent"}
	clinical.referrals[ref.ID] = ref

	status, err := svc.GetAuthorizationStatus(context.Background(), "referral", ref.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RecordAuthNotRequired, status)
}
