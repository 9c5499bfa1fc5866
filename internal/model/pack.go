package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Pack order lifecycle.
const (
	PackOrderStatusPending    = "pending"
	PackOrderStatusApproved   = "approved"
	PackOrderStatusProcessing = "processing"
	PackOrderStatusReady      = "ready"
	PackOrderStatusDispensed  = "dispensed"
	PackOrderStatusCancelled  = "cancelled"
)

// Pack types tie a pack to the clinical context it serves.
const (
	PackTypeSurgery   = "surgery"
	PackTypeLabor     = "labor"
	PackTypeDelivery  = "delivery"
	PackTypeEmergency = "emergency"
	PackTypeGeneral   = "general"
)

// MedicalPack is a predefined bundle of medications issued as one
// unit, e.g. a cesarean delivery pack.
type MedicalPack struct {
	Base
	Name             string          `db:"name" json:"name"`
	PackType         string          `db:"pack_type" json:"pack_type"`
	ProcedureSubtype string          `db:"procedure_subtype" json:"procedure_subtype"`
	Description      string          `db:"description" json:"description"`
	RiskLevel        string          `db:"risk_level" json:"risk_level"`
	TotalCost        decimal.Decimal `db:"total_cost" json:"total_cost"`
	RequiresApproval bool            `db:"requires_approval" json:"requires_approval"`
	IsActive         bool            `db:"is_active" json:"is_active"`
}

// Pack item categories.
const (
	PackItemMedication = "medication"
	PackItemConsumable = "consumable"
	PackItemEquipment  = "equipment"
	PackItemSupply     = "supply"
)

type PackItem struct {
	Base
	PackID            uuid.UUID `db:"pack_id" json:"pack_id"`
	MedicationID      uuid.UUID `db:"medication_id" json:"medication_id"`
	Quantity          int       `db:"quantity" json:"quantity"`
	ItemType          string    `db:"item_type" json:"item_type"`
	IsCritical        bool      `db:"is_critical" json:"is_critical"`
	IsOptional        bool      `db:"is_optional" json:"is_optional"`
	SortOrder         int       `db:"sort_order" json:"sort_order"`
	UsageInstructions string    `db:"usage_instructions" json:"usage_instructions"`
}

// PackOrder requests a pack for a patient. Processing a pending order
// cascades stock into the target dispensary, creates the backing
// prescription, and marks the order ready for dispensing.
type PackOrder struct {
	Base
	PackID         uuid.UUID  `db:"pack_id" json:"pack_id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	DispensaryID   uuid.UUID  `db:"dispensary_id" json:"dispensary_id"`
	SurgeryID      *uuid.UUID `db:"surgery_id" json:"surgery_id,omitempty"`
	LaborRecordID  *uuid.UUID `db:"labor_record_id" json:"labor_record_id,omitempty"`
	Status         string     `db:"status" json:"status"`
	OrderedBy      uuid.UUID  `db:"ordered_by" json:"ordered_by"`
	ProcessedBy    *uuid.UUID `db:"processed_by" json:"processed_by,omitempty"`
	DispensedBy    *uuid.UUID `db:"dispensed_by" json:"dispensed_by,omitempty"`
	PrescriptionID *uuid.UUID `db:"prescription_id" json:"prescription_id,omitempty"`
	ScheduledDate  *time.Time `db:"scheduled_date" json:"scheduled_date,omitempty"`
	ProcessedAt    *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	DispensedAt    *time.Time `db:"dispensed_at" json:"dispensed_at,omitempty"`
	Notes          string     `db:"notes" json:"notes"`
}

// InpatientLinked reports whether the order is tied to a surgery or a
// labor record, which makes the backing prescription inpatient.
func (o *PackOrder) InpatientLinked() bool {
	return o.SurgeryID != nil || o.LaborRecordID != nil
}

// PackWithItems bundles a pack and its item list for API responses.
type PackWithItems struct {
	MedicalPack
	Items []PackItem `json:"items"`
}
