package authorization

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medhq/hms-core/internal/model"
)

// RequiresAuthorization decides whether a record needs an NHIA code
// before its service can proceed, with a human readable reason.
func (s *Service) RequiresAuthorization(ctx context.Context, kind string, id uuid.UUID) (bool, string, error) {
	rec, err := s.fetchRecord(ctx, kind, id)
	if err != nil {
		return false, "", err
	}
	if rec.patientID == uuid.Nil {
		return false, "record has no patient", nil
	}
	patient, err := s.patients.Get(ctx, rec.patientID)
	if err != nil {
		return false, "", err
	}
	if !patient.IsNHIA() {
		return false, "patient is not an NHIA patient", nil
	}
	if rec.codeID != nil {
		code, err := s.codes.GetCode(ctx, *rec.codeID)
		if err == nil && code.IsValid(s.now()) {
			return false, "record already has a valid authorization code", nil
		}
	}
	if rec.consultationID != nil {
		consultation, err := s.clinical.GetConsultation(ctx, *rec.consultationID)
		if err == nil && consultation.RequiresAuthorization {
			return true, "linked consultation requires authorization", nil
		}
	}
	if rec.requiresAuth {
		return true, "record is flagged for authorization", nil
	}
	if isSpecialtyKind(rec.info.Kind) {
		return true, "NHIA patient in a specialty unit", nil
	}
	return false, "no authorization trigger on record", nil
}

// GetAuthorizationStatus derives the effective state from the record's
// own fields and any attached code's status and expiry. A cancelled
// code does not count; the record falls back to its stored state.
func (s *Service) GetAuthorizationStatus(ctx context.Context, kind string, id uuid.UUID) (string, error) {
	rec, err := s.fetchRecord(ctx, kind, id)
	if err != nil {
		return "", err
	}
	if rec.codeID != nil {
		code, err := s.codes.GetCode(ctx, *rec.codeID)
		if err == nil {
			switch code.Status {
			case model.AuthCodeStatusUsed:
				return model.RecordAuthAuthorized, nil
			case model.AuthCodeStatusActive:
				if s.now().Before(code.ExpiresAt) {
					return model.RecordAuthAuthorized, nil
				}
				return model.RecordAuthExpired, nil
			case model.AuthCodeStatusExpired:
				return model.RecordAuthExpired, nil
			}
		}
	}
	if rec.authStatus != "" && rec.authStatus != model.RecordAuthNotRequired {
		return rec.authStatus, nil
	}
	if rec.requiresAuth {
		return model.RecordAuthRequired, nil
	}
	return model.RecordAuthNotRequired, nil
}

// RequestInput carries a ward or clinic request for desk office
// authorization of a record.
type RequestInput struct {
	RecordKind  string    `json:"record_kind" binding:"required"`
	RecordID    uuid.UUID `json:"record_id" binding:"required"`
	Notes       string    `json:"notes"`
	RequestedBy uuid.UUID `json:"-"`
}

// CreateAuthorizationRequest marks a record pending for the desk
// office and appends an audit note. A record already pending is left
// untouched.
func (s *Service) CreateAuthorizationRequest(ctx context.Context, req *RequestInput) error {
	rec, err := s.fetchRecord(ctx, req.RecordKind, req.RecordID)
	if err != nil {
		return err
	}
	if rec.authStatus == model.RecordAuthPending {
		return nil
	}

	if err := s.clinical.SetAuthorization(ctx, rec.info.Table, rec.id, model.RecordAuthPending, rec.codeID); err != nil {
		return err
	}

	note := fmt.Sprintf("[%s] authorization requested by %s", s.now().Format("2006-01-02 15:04"), req.RequestedBy)
	if req.Notes != "" {
		note += ": " + req.Notes
	}
	if err := s.clinical.AppendAuthorizationNote(ctx, rec.info.Table, rec.id, note); err != nil {
		s.logger.Error().Err(err).
			Str("record_kind", rec.info.Kind).
			Str("record_id", rec.id.String()).
			Msg("failed to append authorization note")
	}

	s.logger.Info().
		Str("record_kind", rec.info.Kind).
		Str("record_id", rec.id.String()).
		Str("requested_by", req.RequestedBy.String()).
		Msg("authorization requested")
	return nil
}
