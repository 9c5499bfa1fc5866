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

func (r *packRepository) CreatePack(ctx context.Context, pack *model.MedicalPack, items []*model.PackItem) error {
	pack.ID = uuid.New()
	pack.CreatedAt = time.Now()
	pack.UpdatedAt = time.Now()

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO medical_packs (id, name, pack_type, procedure_subtype, description, risk_level, total_cost, requires_approval, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		if _, err := tx.ExecContext(ctx, query,
			pack.ID, pack.Name, pack.PackType, pack.ProcedureSubtype, pack.Description,
			pack.RiskLevel, pack.TotalCost, pack.RequiresApproval, pack.IsActive, pack.CreatedAt, pack.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create medical pack: %w", err)
		}

		itemQuery := `
			INSERT INTO pack_items (id, pack_id, medication_id, quantity, item_type, is_critical, is_optional, sort_order, usage_instructions, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		for i, item := range items {
			item.ID = uuid.New()
			item.PackID = pack.ID
			if item.SortOrder == 0 {
				item.SortOrder = i + 1
			}
			item.CreatedAt = pack.CreatedAt
			item.UpdatedAt = pack.CreatedAt
			if _, err := tx.ExecContext(ctx, itemQuery,
				item.ID, item.PackID, item.MedicationID, item.Quantity,
				item.ItemType, item.IsCritical, item.IsOptional, item.SortOrder,
				item.UsageInstructions, item.CreatedAt, item.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to create pack item: %w", err)
			}
		}
		return nil
	})
}

func (r *packRepository) GetPack(ctx context.Context, id uuid.UUID) (*model.MedicalPack, error) {
	query := `
		SELECT id, name, pack_type, procedure_subtype, description, risk_level, total_cost, requires_approval, is_active, created_at, updated_at
		FROM medical_packs WHERE id = $1
	`
	var pack model.MedicalPack
	err := r.db.GetContext(ctx, &pack, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("pack not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pack: %w", err)
	}
	return &pack, nil
}

func (r *packRepository) GetPackItems(ctx context.Context, packID uuid.UUID) ([]*model.PackItem, error) {
	query := `
		SELECT id, pack_id, medication_id, quantity, item_type, is_critical, is_optional, sort_order, usage_instructions, created_at, updated_at
		FROM pack_items WHERE pack_id = $1 ORDER BY sort_order
	`
	var items []*model.PackItem
	if err := r.db.SelectContext(ctx, &items, query, packID); err != nil {
		return nil, fmt.Errorf("failed to get pack items: %w", err)
	}
	return items, nil
}

func (r *packRepository) ListPacks(ctx context.Context, packType string) ([]*model.MedicalPack, error) {
	query := `
		SELECT id, name, pack_type, procedure_subtype, description, risk_level, total_cost, requires_approval, is_active, created_at, updated_at
		FROM medical_packs WHERE is_active = true
	`
	args := []interface{}{}
	if packType != "" {
		query += ` AND pack_type = $1`
		args = append(args, packType)
	}
	query += ` ORDER BY name`

	var packs []*model.MedicalPack
	if err := r.db.SelectContext(ctx, &packs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list packs: %w", err)
	}
	return packs, nil
}

const packOrderColumns = `id, pack_id, patient_id, dispensary_id, surgery_id, labor_record_id, status, ordered_by, processed_by, dispensed_by, prescription_id, scheduled_date, processed_at, dispensed_at, notes, created_at, updated_at`

func (r *packRepository) CreateOrder(ctx context.Context, order *model.PackOrder) error {
	query := `
		INSERT INTO pack_orders (id, pack_id, patient_id, dispensary_id, surgery_id, labor_record_id, status, ordered_by, scheduled_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	order.ID = uuid.New()
	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		order.ID, order.PackID, order.PatientID, order.DispensaryID,
		order.SurgeryID, order.LaborRecordID, order.Status, order.OrderedBy,
		order.ScheduledDate, order.Notes, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create pack order: %w", err)
	}
	return nil
}

func (r *packRepository) GetOrder(ctx context.Context, id uuid.UUID) (*model.PackOrder, error) {
	var order model.PackOrder
	err := r.db.GetContext(ctx, &order, `SELECT `+packOrderColumns+` FROM pack_orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("pack order not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pack order: %w", err)
	}
	return &order, nil
}

func (r *packRepository) UpdateOrder(ctx context.Context, tx *sqlx.Tx, order *model.PackOrder) error {
	query := `
		UPDATE pack_orders
		SET status = $1, processed_by = $2, dispensed_by = $3, prescription_id = $4, processed_at = $5, dispensed_at = $6, notes = $7, updated_at = $8
		WHERE id = $9
	`
	order.UpdatedAt = time.Now()

	result, err := r.ext(tx).ExecContext(ctx, query,
		order.Status, order.ProcessedBy, order.DispensedBy, order.PrescriptionID,
		order.ProcessedAt, order.DispensedAt, order.Notes, order.UpdatedAt, order.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update pack order: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("pack order not found")
	}
	return nil
}

func (r *packRepository) ListOrders(ctx context.Context, status string, dispensaryID uuid.UUID) ([]*model.PackOrder, error) {
	query := `SELECT ` + packOrderColumns + ` FROM pack_orders WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, status)
		idx++
	}
	if dispensaryID != uuid.Nil {
		query += fmt.Sprintf(" AND dispensary_id = $%d", idx)
		args = append(args, dispensaryID)
		idx++
	}
	query += " ORDER BY created_at DESC"

	var orders []*model.PackOrder
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list pack orders: %w", err)
	}
	return orders, nil
}
