package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medhq/hms-core/internal/model"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

func (r *clinicalRepository) GetConsultation(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `
		SELECT id, patient_id, doctor_id, consulting_room, chief_complaint, diagnosis, consulted_at,
		       requires_authorization, authorization_status, authorization_code_id, authorization_notes, created_at, updated_at
		FROM consultations WHERE id = $1
	`
	var c model.Consultation
	err := r.db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("consultation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	return &c, nil
}

func (r *clinicalRepository) GetReferral(ctx context.Context, id uuid.UUID) (*model.Referral, error) {
	query := `
		SELECT id, patient_id, consultation_id, referred_by, specialty, reason, referred_at,
		       requires_authorization, authorization_status, authorization_code_id, authorization_notes, created_at, updated_at
		FROM referrals WHERE id = $1
	`
	var ref model.Referral
	err := r.db.GetContext(ctx, &ref, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("referral not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral: %w", err)
	}
	return &ref, nil
}

func (r *clinicalRepository) GetTestRequest(ctx context.Context, id uuid.UUID) (*model.TestRequest, error) {
	query := `
		SELECT id, patient_id, consultation_id, requested_by, total_price, status, requested_at,
		       requires_authorization, authorization_status, authorization_code_id, authorization_notes, created_at, updated_at
		FROM test_requests WHERE id = $1
	`
	var tr model.TestRequest
	err := r.db.GetContext(ctx, &tr, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("test request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test request: %w", err)
	}
	return &tr, nil
}

func (r *clinicalRepository) GetRadiologyOrder(ctx context.Context, id uuid.UUID) (*model.RadiologyOrder, error) {
	query := `
		SELECT id, patient_id, consultation_id, ordered_by, study_type, price, status, ordered_at,
		       requires_authorization, authorization_status, authorization_code_id, authorization_notes, created_at, updated_at
		FROM radiology_orders WHERE id = $1
	`
	var ro model.RadiologyOrder
	err := r.db.GetContext(ctx, &ro, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("radiology order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get radiology order: %w", err)
	}
	return &ro, nil
}

func (r *clinicalRepository) GetSurgery(ctx context.Context, id uuid.UUID) (*model.Surgery, error) {
	query := `
		SELECT id, patient_id, surgeon_id, procedure_name, fee, status, scheduled_for,
		       requires_authorization, authorization_status, authorization_code_id, authorization_notes, created_at, updated_at
		FROM surgeries WHERE id = $1
	`
	var s model.Surgery
	err := r.db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("surgery not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get surgery: %w", err)
	}
	return &s, nil
}

func (r *clinicalRepository) GetSpecialtyRecord(ctx context.Context, kind string, id uuid.UUID) (*model.SpecialtyRecord, error) {
	query := `
		SELECT id, kind, patient_id, consultation_id, attended_by, fee, summary, recorded_at,
		       requires_authorization, authorization_status, authorization_code_id, authorization_notes, created_at, updated_at
		FROM specialty_records WHERE id = $1 AND kind = $2
	`
	var sr model.SpecialtyRecord
	err := r.db.GetContext(ctx, &sr, query, id, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("specialty record not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get specialty record: %w", err)
	}
	return &sr, nil
}

// authorizableTables whitelists table names that carry authorization
// columns; SetAuthorization refuses anything else.
var authorizableTables = map[string]bool{
	"consultations":     true,
	"referrals":         true,
	"prescriptions":     true,
	"test_requests":     true,
	"radiology_orders":  true,
	"surgeries":         true,
	"specialty_records": true,
}

func (r *clinicalRepository) SetAuthorization(ctx context.Context, table string, recordID uuid.UUID, status string, codeID *uuid.UUID) error {
	if !authorizableTables[table] {
		return apperrors.BadRequest(fmt.Sprintf("table %q does not support authorization", table))
	}
	query := fmt.Sprintf(`
		UPDATE %s SET authorization_status = $1, authorization_code_id = $2, updated_at = NOW()
		WHERE id = $3
	`, table)
	result, err := r.db.ExecContext(ctx, query, status, codeID, recordID)
	if err != nil {
		return fmt.Errorf("failed to set authorization on %s: %w", table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("record not found")
	}
	return nil
}

func (r *clinicalRepository) AppendAuthorizationNote(ctx context.Context, table string, recordID uuid.UUID, note string) error {
	if !authorizableTables[table] {
		return apperrors.BadRequest(fmt.Sprintf("table %q does not support authorization", table))
	}
	query := fmt.Sprintf(`
		UPDATE %s
		SET authorization_notes = CASE
			WHEN COALESCE(authorization_notes, '') = '' THEN $1
			ELSE authorization_notes || E'\n' || $1
		END,
		updated_at = NOW()
		WHERE id = $2
	`, table)
	result, err := r.db.ExecContext(ctx, query, note, recordID)
	if err != nil {
		return fmt.Errorf("failed to append authorization note on %s: %w", table, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("record not found")
	}
	return nil
}

func (r *clinicalRepository) ListPendingAuthorizations(ctx context.Context) ([]*model.PendingAuthorization, error) {
	query := `
		SELECT record_kind, record_id, patient_id, patient_name, service_type, amount, description, requested_at
		FROM (
			SELECT 'consultation' AS record_kind, c.id AS record_id, c.patient_id,
			       p.first_name || ' ' || p.last_name AS patient_name,
			       'general' AS service_type, 0 AS amount,
			       c.chief_complaint AS description, c.consulted_at AS requested_at
			FROM consultations c JOIN patients p ON p.id = c.patient_id
			WHERE c.requires_authorization AND c.authorization_status IN ('required', 'pending')
			UNION ALL
			SELECT 'referral', r.id, r.patient_id,
			       p.first_name || ' ' || p.last_name,
			       'specialty', 0, r.reason, r.referred_at
			FROM referrals r JOIN patients p ON p.id = r.patient_id
			WHERE r.requires_authorization AND r.authorization_status IN ('required', 'pending')
			UNION ALL
			SELECT 'prescription', pr.id, pr.patient_id,
			       p.first_name || ' ' || p.last_name,
			       'medication', 0, pr.notes, pr.prescribed_at
			FROM prescriptions pr JOIN patients p ON p.id = pr.patient_id
			WHERE pr.requires_authorization AND pr.authorization_status IN ('required', 'pending')
			UNION ALL
			SELECT 'test_request', t.id, t.patient_id,
			       p.first_name || ' ' || p.last_name,
			       'laboratory', t.total_price, '', t.requested_at
			FROM test_requests t JOIN patients p ON p.id = t.patient_id
			WHERE t.requires_authorization AND t.authorization_status IN ('required', 'pending')
			UNION ALL
			SELECT 'radiology_order', ro.id, ro.patient_id,
			       p.first_name || ' ' || p.last_name,
			       'radiology', ro.price, ro.study_type, ro.ordered_at
			FROM radiology_orders ro JOIN patients p ON p.id = ro.patient_id
			WHERE ro.requires_authorization AND ro.authorization_status IN ('required', 'pending')
			UNION ALL
			SELECT 'surgery', s.id, s.patient_id,
			       p.first_name || ' ' || p.last_name,
			       'surgery', s.fee, s.procedure_name, s.scheduled_for
			FROM surgeries s JOIN patients p ON p.id = s.patient_id
			WHERE s.requires_authorization AND s.authorization_status IN ('required', 'pending')
			UNION ALL
			SELECT sr.kind, sr.id, sr.patient_id,
			       p.first_name || ' ' || p.last_name,
			       sr.kind, sr.fee, sr.summary, sr.recorded_at
			FROM specialty_records sr JOIN patients p ON p.id = sr.patient_id
			WHERE sr.requires_authorization AND sr.authorization_status IN ('required', 'pending')
		) pending
		ORDER BY requested_at
	`
	var list []*model.PendingAuthorization
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("failed to list pending authorizations: %w", err)
	}
	return list, nil
}
