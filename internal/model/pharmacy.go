package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Medication is a catalog entry for a drug the pharmacy stocks.
type Medication struct {
	Base
	Name         string          `db:"name" json:"name"`
	GenericName  string          `db:"generic_name" json:"generic_name"`
	Category     string          `db:"category" json:"category"`
	DosageForm   string          `db:"dosage_form" json:"dosage_form"`
	Strength     string          `db:"strength" json:"strength"`
	Price        decimal.Decimal `db:"price" json:"price"`
	ReorderLevel int             `db:"reorder_level" json:"reorder_level"`
	IsActive     bool            `db:"is_active" json:"is_active"`
}

// BulkStore is the central warehouse tier where purchased stock lands
// first. Capacity is advisory.
type BulkStore struct {
	Base
	Name        string `db:"name" json:"name"`
	Location    string `db:"location" json:"location"`
	Description string `db:"description" json:"description"`
	Capacity    int    `db:"capacity" json:"capacity"`
	IsActive    bool   `db:"is_active" json:"is_active"`
}

// ActiveStore is the intermediate tier attached one-to-one to a
// dispensary.
type ActiveStore struct {
	Base
	DispensaryID uuid.UUID `db:"dispensary_id" json:"dispensary_id"`
	Name         string    `db:"name" json:"name"`
	Capacity     int       `db:"capacity" json:"capacity"`
	IsActive     bool      `db:"is_active" json:"is_active"`
}

// Dispensary is a patient-facing dispensing point. ManagerID is the
// pharmacist responsible for it.
type Dispensary struct {
	Base
	Name        string     `db:"name" json:"name"`
	Location    string     `db:"location" json:"location"`
	Description string     `db:"description" json:"description"`
	ManagerID   *uuid.UUID `db:"manager_id" json:"manager_id,omitempty"`
	IsActive    bool       `db:"is_active" json:"is_active"`
}

// PharmacistAssignment scopes a pharmacist to a dispensary. A user may
// hold several assignments but at most one active per dispensary.
type PharmacistAssignment struct {
	Base
	UserID       uuid.UUID  `db:"user_id" json:"user_id"`
	DispensaryID uuid.UUID  `db:"dispensary_id" json:"dispensary_id"`
	Role         string     `db:"role" json:"role"`
	AssignedBy   *uuid.UUID `db:"assigned_by" json:"assigned_by,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	StartDate    *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
}

// Assignment roles within a dispensary.
const (
	AssignmentRolePharmacist = "pharmacist"
	AssignmentRoleManager    = "manager"
	AssignmentRoleTechnician = "technician"
)
