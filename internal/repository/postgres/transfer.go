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

// Each transfer kind lives in its own table with an identical shape.
func transferTable(kind model.TransferKind) string {
	switch kind {
	case model.TransferBulkToActive:
		return "bulk_store_transfers"
	case model.TransferActiveToDisp:
		return "active_store_transfers"
	default:
		return "dispensary_transfers"
	}
}

const transferColumns = `id, medication_id, from_id, to_id, quantity, batch_number, status, requested_by, approved_by, executed_by, approved_at, completed_at, notes, system_initiated, created_at, updated_at`

func (r *transferRepository) Create(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, medication_id, from_id, to_id, quantity, batch_number, status, requested_by, notes, system_initiated, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, transferTable(t.Kind))
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	t.UpdatedAt = time.Now()

	_, err := r.ext(tx).ExecContext(ctx, query,
		t.ID, t.MedicationID, t.FromID, t.ToID, t.Quantity, t.BatchNumber,
		t.Status, t.RequestedBy, t.Notes, t.SystemInitiated, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create %s transfer: %w", t.Kind, err)
	}
	return nil
}

func (r *transferRepository) Get(ctx context.Context, kind model.TransferKind, id uuid.UUID) (*model.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, transferColumns, transferTable(kind))
	var t model.Transfer
	err := r.db.GetContext(ctx, &t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("transfer not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	t.Kind = kind
	return &t, nil
}

func (r *transferRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, approved_by = $2, executed_by = $3, approved_at = $4, completed_at = $5, notes = $6, updated_at = $7
		WHERE id = $8
	`, transferTable(t.Kind))
	t.UpdatedAt = time.Now()

	result, err := r.ext(tx).ExecContext(ctx, query,
		t.Status, t.ApprovedBy, t.ExecutedBy, t.ApprovedAt, t.CompletedAt, t.Notes, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("transfer not found")
	}
	return nil
}

func (r *transferRepository) List(ctx context.Context, filter *model.TransferFilter) ([]*model.Transfer, error) {
	kind := model.TransferBulkToActive
	if filter != nil && filter.Kind != "" {
		kind = filter.Kind
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE 1=1`, transferColumns, transferTable(kind))
	args := []interface{}{}
	idx := 1

	if filter != nil {
		if filter.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", idx)
			args = append(args, filter.Status)
			idx++
		}
		if filter.FromID != uuid.Nil {
			query += fmt.Sprintf(" AND from_id = $%d", idx)
			args = append(args, filter.FromID)
			idx++
		}
		if filter.ToID != uuid.Nil {
			query += fmt.Sprintf(" AND to_id = $%d", idx)
			args = append(args, filter.ToID)
			idx++
		}
		if filter.MedicationID != uuid.Nil {
			query += fmt.Sprintf(" AND medication_id = $%d", idx)
			args = append(args, filter.MedicationID)
			idx++
		}
	}
	query += " ORDER BY created_at DESC"

	var transfers []*model.Transfer
	if err := r.db.SelectContext(ctx, &transfers, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	for _, t := range transfers {
		t.Kind = kind
	}
	return transfers, nil
}

func (r *transferRepository) ListByStatus(ctx context.Context, kind model.TransferKind, status string) ([]*model.Transfer, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE status = $1 ORDER BY created_at`, transferColumns, transferTable(kind))
	var transfers []*model.Transfer
	if err := r.db.SelectContext(ctx, &transfers, query, status); err != nil {
		return nil, fmt.Errorf("failed to list transfers by status: %w", err)
	}
	for _, t := range transfers {
		t.Kind = kind
	}
	return transfers, nil
}

func (r *transferRepository) Stats(ctx context.Context, kind model.TransferKind) (*model.TransferStats, error) {
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'in_transit') AS in_transit,
			COUNT(*) FILTER (WHERE status = 'completed') AS completed,
			COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
		FROM %s
	`, transferTable(kind))
	var stats model.TransferStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to get transfer stats: %w", err)
	}
	stats.Kind = kind
	return &stats, nil
}
