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

const authCodeColumns = `id, code, patient_id, record_kind, record_id, service_type, amount, status, issued_by, expires_at, used_at, notes, created_at, updated_at`

func (r *authorizationRepository) CreateCode(ctx context.Context, code *model.AuthorizationCode) error {
	query := `
		INSERT INTO authorization_codes (id, code, patient_id, record_kind, record_id, service_type, amount, status, issued_by, expires_at, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	code.ID = uuid.New()
	code.CreatedAt = time.Now()
	code.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		code.ID, code.Code, code.PatientID, code.RecordKind, code.RecordID,
		code.ServiceType, code.Amount, code.Status, code.IssuedBy,
		code.ExpiresAt, code.Notes, code.CreatedAt, code.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create authorization code: %w", err)
	}
	return nil
}

func (r *authorizationRepository) GetCode(ctx context.Context, id uuid.UUID) (*model.AuthorizationCode, error) {
	var code model.AuthorizationCode
	err := r.db.GetContext(ctx, &code, `SELECT `+authCodeColumns+` FROM authorization_codes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("authorization code not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}
	return &code, nil
}

func (r *authorizationRepository) GetCodeByValue(ctx context.Context, value string) (*model.AuthorizationCode, error) {
	var code model.AuthorizationCode
	err := r.db.GetContext(ctx, &code, `SELECT `+authCodeColumns+` FROM authorization_codes WHERE code = $1`, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("authorization code not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get authorization code by value: %w", err)
	}
	return &code, nil
}

func (r *authorizationRepository) UpdateCodeStatus(ctx context.Context, id uuid.UUID, status string, usedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET status = $1, used_at = $2, updated_at = NOW() WHERE id = $3`,
		status, usedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update authorization code status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("authorization code not found")
	}
	return nil
}

func (r *authorizationRepository) ListCodes(ctx context.Context, patientID uuid.UUID, status string) ([]*model.AuthorizationCode, error) {
	query := `SELECT ` + authCodeColumns + ` FROM authorization_codes WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if patientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", idx)
		args = append(args, patientID)
		idx++
	}
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}
	query += " ORDER BY created_at DESC"

	var codes []*model.AuthorizationCode
	if err := r.db.SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list authorization codes: %w", err)
	}
	return codes, nil
}

func (r *authorizationRepository) CodeExists(ctx context.Context, value string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM authorization_codes WHERE code = $1)`, value)
	if err != nil {
		return false, fmt.Errorf("failed to check authorization code: %w", err)
	}
	return exists, nil
}
