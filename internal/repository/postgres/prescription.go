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

const prescriptionColumns = `id, patient_id, doctor_id, prescription_type, status, notes, requires_authorization, authorization_status, authorization_code_id, prescribed_at, created_at, updated_at`

func (r *prescriptionRepository) Create(ctx context.Context, tx *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error {
	query := `
		INSERT INTO prescriptions (id, patient_id, doctor_id, prescription_type, status, notes, requires_authorization, authorization_status, authorization_code_id, prescribed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	if p.PrescribedAt.IsZero() {
		p.PrescribedAt = p.CreatedAt
	}

	if _, err := r.ext(tx).ExecContext(ctx, query,
		p.ID, p.PatientID, p.DoctorID, p.Type, p.Status, p.Notes,
		p.RequiresAuthorization, p.AuthorizationStatus, p.AuthorizationCodeID,
		p.PrescribedAt, p.CreatedAt, p.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}

	itemQuery := `
		INSERT INTO prescription_items (id, prescription_id, medication_id, dosage, frequency, duration, quantity, quantity_dispensed, instructions, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, item := range items {
		item.ID = uuid.New()
		item.PrescriptionID = p.ID
		item.CreatedAt = p.CreatedAt
		item.UpdatedAt = p.CreatedAt
		if _, err := r.ext(tx).ExecContext(ctx, itemQuery,
			item.ID, item.PrescriptionID, item.MedicationID, item.Dosage,
			item.Frequency, item.Duration, item.Quantity, item.QuantityDispensed,
			item.Instructions, item.CreatedAt, item.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create prescription item: %w", err)
		}
	}
	return nil
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	var p model.Prescription
	err := r.db.GetContext(ctx, &p, `SELECT `+prescriptionColumns+` FROM prescriptions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("prescription not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return &p, nil
}

func (r *prescriptionRepository) GetItems(ctx context.Context, prescriptionID uuid.UUID) ([]*model.PrescriptionItem, error) {
	query := `
		SELECT id, prescription_id, medication_id, dosage, frequency, duration, quantity, quantity_dispensed, instructions, created_at, updated_at
		FROM prescription_items
		WHERE prescription_id = $1
		ORDER BY created_at
	`
	var items []*model.PrescriptionItem
	if err := r.db.SelectContext(ctx, &items, query, prescriptionID); err != nil {
		return nil, fmt.Errorf("failed to get prescription items: %w", err)
	}
	return items, nil
}

func (r *prescriptionRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status string) error {
	result, err := r.ext(tx).ExecContext(ctx,
		`UPDATE prescriptions SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update prescription status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("prescription not found")
	}
	return nil
}

func (r *prescriptionRepository) RecordDispense(ctx context.Context, tx *sqlx.Tx, itemID uuid.UUID, quantity int, log *model.DispensingLog) error {
	result, err := r.ext(tx).ExecContext(ctx, `
		UPDATE prescription_items
		SET quantity_dispensed = quantity_dispensed + $1, updated_at = NOW()
		WHERE id = $2 AND quantity_dispensed + $1 <= quantity
	`, quantity, itemID)
	if err != nil {
		return fmt.Errorf("failed to record dispense: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.BadRequest("dispense exceeds prescribed quantity")
	}

	log.ID = uuid.New()
	log.PrescriptionItemID = itemID
	log.CreatedAt = time.Now()
	log.UpdatedAt = log.CreatedAt
	if log.DispensedAt.IsZero() {
		log.DispensedAt = log.CreatedAt
	}
	if _, err := r.ext(tx).ExecContext(ctx, `
		INSERT INTO dispensing_logs (id, prescription_item_id, dispensary_id, medication_id, batch_number, quantity, unit_price, dispensed_by, dispensed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		log.ID, log.PrescriptionItemID, log.DispensaryID, log.MedicationID,
		log.BatchNumber, log.Quantity, log.UnitPrice, log.DispensedBy,
		log.DispensedAt, log.CreatedAt, log.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to create dispensing log: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Prescription, error) {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions WHERE patient_id = $1 ORDER BY prescribed_at DESC`
	var list []*model.Prescription
	if err := r.db.SelectContext(ctx, &list, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return list, nil
}
