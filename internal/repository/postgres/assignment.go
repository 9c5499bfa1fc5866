package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medhq/hms-core/internal/model"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

const assignmentColumns = `id, user_id, dispensary_id, role, assigned_by, is_active, start_date, end_date, created_at, updated_at`

// Create persists an assignment. An active assignment supersedes any
// prior active ones for the user, in the same transaction, so a user
// holds at most one active assignment at a time.
func (r *assignmentRepository) Create(ctx context.Context, a *model.PharmacistAssignment) error {
	query := `
		INSERT INTO pharmacist_assignments (id, user_id, dispensary_id, role, assigned_by, is_active, start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if a.IsActive {
			_, err := tx.ExecContext(ctx,
				`UPDATE pharmacist_assignments SET is_active = false, updated_at = NOW() WHERE user_id = $1 AND is_active = true`,
				a.UserID)
			if err != nil {
				return fmt.Errorf("failed to supersede prior assignments: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx, query,
			a.ID, a.UserID, a.DispensaryID, a.Role, a.AssignedBy, a.IsActive, a.StartDate, a.EndDate, a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create assignment: %w", err)
		}
		return nil
	})
}

func (r *assignmentRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE pharmacist_assignments SET is_active = false, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate assignment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("assignment not found")
	}
	return nil
}

func (r *assignmentRepository) GetActive(ctx context.Context, userID, dispensaryID uuid.UUID) (*model.PharmacistAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM pharmacist_assignments
		WHERE user_id = $1 AND dispensary_id = $2 AND is_active = true
	`
	var a model.PharmacistAssignment
	err := r.db.GetContext(ctx, &a, query, userID, dispensaryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("assignment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

func (r *assignmentRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.PharmacistAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM pharmacist_assignments
		WHERE user_id = $1 AND is_active = true
		ORDER BY created_at DESC
	`
	var list []*model.PharmacistAssignment
	if err := r.db.SelectContext(ctx, &list, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list assignments for user: %w", err)
	}
	return list, nil
}

func (r *assignmentRepository) ListForDispensary(ctx context.Context, dispensaryID uuid.UUID) ([]*model.PharmacistAssignment, error) {
	query := `
		SELECT ` + assignmentColumns + `
		FROM pharmacist_assignments
		WHERE dispensary_id = $1 AND is_active = true
		ORDER BY created_at
	`
	var list []*model.PharmacistAssignment
	if err := r.db.SelectContext(ctx, &list, query, dispensaryID); err != nil {
		return nil, fmt.Errorf("failed to list assignments for dispensary: %w", err)
	}
	return list, nil
}
