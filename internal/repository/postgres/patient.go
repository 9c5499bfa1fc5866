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

const patientColumns = `id, first_name, last_name, patient_type, nhia_number, date_of_birth, gender, phone, is_active, created_at, updated_at`

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, first_name, last_name, patient_type, nhia_number, date_of_birth, gender, phone, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	patient.ID = uuid.New()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FirstName,
		patient.LastName,
		patient.PatientType,
		patient.NHIANumber,
		patient.DateOfBirth,
		patient.Gender,
		patient.Phone,
		patient.IsActive,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET first_name = $1, last_name = $2, patient_type = $3, nhia_number = $4,
		    date_of_birth = $5, gender = $6, phone = $7, is_active = $8, updated_at = $9
		WHERE id = $10
	`
	patient.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		patient.FirstName,
		patient.LastName,
		patient.PatientType,
		patient.NHIANumber,
		patient.DateOfBirth,
		patient.Gender,
		patient.Phone,
		patient.IsActive,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("patient not found")
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context, filter *model.BaseFilter) ([]*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filter != nil {
		if filter.SearchTerm != "" {
			query += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR nhia_number ILIKE $%d)", idx, idx, idx)
			args = append(args, "%"+filter.SearchTerm+"%")
			idx++
		}
		if filter.Status != "" {
			query += fmt.Sprintf(" AND patient_type = $%d", idx)
			args = append(args, filter.Status)
			idx++
		}
	}
	query += " ORDER BY last_name, first_name"

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
