package records

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

// Service covers the patient registry and read access to the clinical
// records that the authorization workflow stamps.
type Service struct {
	patients repository.PatientRepository
	clinical repository.ClinicalRepository
	logger   zerolog.Logger
}

func NewService(patients repository.PatientRepository, clinical repository.ClinicalRepository, logger zerolog.Logger) *Service {
	return &Service{
		patients: patients,
		clinical: clinical,
		logger:   logger,
	}
}

func (s *Service) RegisterPatient(ctx context.Context, patient *model.Patient) error {
	patient.FirstName = strings.TrimSpace(patient.FirstName)
	patient.LastName = strings.TrimSpace(patient.LastName)
	if patient.FirstName == "" || patient.LastName == "" {
		return apperrors.BadRequest("first and last name are required")
	}

	switch patient.PatientType {
	case "":
		patient.PatientType = model.PatientTypeRegular
	case model.PatientTypeRegular, model.PatientTypeNHIA, model.PatientTypePrivate:
	default:
		return apperrors.BadRequest("unknown patient type: " + patient.PatientType)
	}
	if patient.IsNHIA() && (patient.NHIANumber == nil || strings.TrimSpace(*patient.NHIANumber) == "") {
		return apperrors.BadRequest("NHIA patients require an NHIA number")
	}

	patient.IsActive = true
	if err := s.patients.Create(ctx, patient); err != nil {
		return err
	}

	s.logger.Info().
		Str("patient_id", patient.ID.String()).
		Str("patient_type", patient.PatientType).
		Msg("patient registered")
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return s.patients.Get(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, filter *model.BaseFilter) ([]*model.Patient, error) {
	return s.patients.List(ctx, filter)
}

// UpdatePatient applies the mutable registry fields. The patient type
// cannot move away from NHIA while an NHIA number is still recorded,
// since billing history depends on it.
func (s *Service) UpdatePatient(ctx context.Context, patient *model.Patient) error {
	existing, err := s.patients.Get(ctx, patient.ID)
	if err != nil {
		return err
	}
	if existing.IsNHIA() && !patient.IsNHIA() && existing.NHIANumber != nil {
		return apperrors.BadRequest("cannot change patient type while an NHIA number is recorded")
	}
	if patient.IsNHIA() && (patient.NHIANumber == nil || strings.TrimSpace(*patient.NHIANumber) == "") {
		return apperrors.BadRequest("NHIA patients require an NHIA number")
	}
	return s.patients.Update(ctx, patient)
}

func (s *Service) GetConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	return s.clinical.GetConsultation(ctx, id)
}

func (s *Service) GetReferral(ctx context.Context, id uuid.UUID) (*model.Referral, error) {
	return s.clinical.GetReferral(ctx, id)
}
