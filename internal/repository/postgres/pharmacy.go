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

func (r *pharmacyRepository) CreateMedication(ctx context.Context, med *model.Medication) error {
	query := `
		INSERT INTO medications (id, name, generic_name, category, dosage_form, strength, price, reorder_level, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	med.ID = uuid.New()
	med.CreatedAt = time.Now()
	med.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		med.ID,
		med.Name,
		med.GenericName,
		med.Category,
		med.DosageForm,
		med.Strength,
		med.Price,
		med.ReorderLevel,
		med.IsActive,
		med.CreatedAt,
		med.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medication: %w", err)
	}
	return nil
}

func (r *pharmacyRepository) GetMedication(ctx context.Context, id uuid.UUID) (*model.Medication, error) {
	query := `
		SELECT id, name, generic_name, category, dosage_form, strength, price, reorder_level, is_active, created_at, updated_at
		FROM medications WHERE id = $1
	`
	var med model.Medication
	err := r.db.GetContext(ctx, &med, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("medication not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}
	return &med, nil
}

func (r *pharmacyRepository) ListMedications(ctx context.Context, activeOnly bool) ([]*model.Medication, error) {
	query := `
		SELECT id, name, generic_name, category, dosage_form, strength, price, reorder_level, is_active, created_at, updated_at
		FROM medications
	`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name`

	var meds []*model.Medication
	if err := r.db.SelectContext(ctx, &meds, query); err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return meds, nil
}

func (r *pharmacyRepository) CreateBulkStore(ctx context.Context, store *model.BulkStore) error {
	query := `
		INSERT INTO bulk_stores (id, name, location, description, capacity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	store.ID = uuid.New()
	store.CreatedAt = time.Now()
	store.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		store.ID, store.Name, store.Location, store.Description,
		store.Capacity, store.IsActive, store.CreatedAt, store.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create bulk store: %w", err)
	}
	return nil
}

func (r *pharmacyRepository) GetBulkStore(ctx context.Context, id uuid.UUID) (*model.BulkStore, error) {
	query := `
		SELECT id, name, location, description, capacity, is_active, created_at, updated_at
		FROM bulk_stores WHERE id = $1
	`
	var store model.BulkStore
	err := r.db.GetContext(ctx, &store, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("bulk store not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bulk store: %w", err)
	}
	return &store, nil
}

func (r *pharmacyRepository) ListBulkStores(ctx context.Context) ([]*model.BulkStore, error) {
	query := `
		SELECT id, name, location, description, capacity, is_active, created_at, updated_at
		FROM bulk_stores WHERE is_active = true ORDER BY name
	`
	var stores []*model.BulkStore
	if err := r.db.SelectContext(ctx, &stores, query); err != nil {
		return nil, fmt.Errorf("failed to list bulk stores: %w", err)
	}
	return stores, nil
}

func (r *pharmacyRepository) CreateDispensary(ctx context.Context, d *model.Dispensary) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO dispensaries (id, name, location, description, manager_id, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		if _, err := tx.ExecContext(ctx, query,
			d.ID, d.Name, d.Location, d.Description,
			d.ManagerID, d.IsActive, d.CreatedAt, d.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create dispensary: %w", err)
		}

		// Every dispensary gets its own active store.
		asQuery := `
			INSERT INTO active_stores (id, dispensary_id, name, capacity, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		if _, err := tx.ExecContext(ctx, asQuery,
			uuid.New(), d.ID, "Active Store - "+d.Name, 1000, true, d.CreatedAt, d.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to create active store: %w", err)
		}
		return nil
	})
	return err
}

func (r *pharmacyRepository) GetDispensary(ctx context.Context, id uuid.UUID) (*model.Dispensary, error) {
	query := `
		SELECT id, name, location, description, manager_id, is_active, created_at, updated_at
		FROM dispensaries WHERE id = $1
	`
	var d model.Dispensary
	err := r.db.GetContext(ctx, &d, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("dispensary not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispensary: %w", err)
	}
	return &d, nil
}

func (r *pharmacyRepository) UpdateDispensary(ctx context.Context, d *model.Dispensary) error {
	query := `
		UPDATE dispensaries
		SET name = $1, location = $2, description = $3, manager_id = $4, is_active = $5, updated_at = $6
		WHERE id = $7
	`
	d.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		d.Name, d.Location, d.Description, d.ManagerID, d.IsActive, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dispensary: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("dispensary not found")
	}
	return nil
}

func (r *pharmacyRepository) ListDispensaries(ctx context.Context, activeOnly bool) ([]*model.Dispensary, error) {
	query := `
		SELECT id, name, location, description, manager_id, is_active, created_at, updated_at
		FROM dispensaries
	`
	if activeOnly {
		query += ` WHERE is_active = true`
	}
	query += ` ORDER BY name`

	var list []*model.Dispensary
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("failed to list dispensaries: %w", err)
	}
	return list, nil
}

func (r *pharmacyRepository) CreateActiveStore(ctx context.Context, s *model.ActiveStore) error {
	query := `
		INSERT INTO active_stores (id, dispensary_id, name, capacity, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.DispensaryID, s.Name, s.Capacity, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create active store: %w", err)
	}
	return nil
}

func (r *pharmacyRepository) GetActiveStore(ctx context.Context, id uuid.UUID) (*model.ActiveStore, error) {
	query := `
		SELECT id, dispensary_id, name, capacity, is_active, created_at, updated_at
		FROM active_stores WHERE id = $1
	`
	var s model.ActiveStore
	err := r.db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("active store not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active store: %w", err)
	}
	return &s, nil
}

func (r *pharmacyRepository) GetActiveStoreByDispensary(ctx context.Context, dispensaryID uuid.UUID) (*model.ActiveStore, error) {
	query := `
		SELECT id, dispensary_id, name, capacity, is_active, created_at, updated_at
		FROM active_stores WHERE dispensary_id = $1
	`
	var s model.ActiveStore
	err := r.db.GetContext(ctx, &s, query, dispensaryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("active store not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active store for dispensary: %w", err)
	}
	return &s, nil
}
