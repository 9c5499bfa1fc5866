package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Prescription statuses.
const (
	PrescriptionStatusPending   = "pending"
	PrescriptionStatusApproved  = "approved"
	PrescriptionStatusDispensed = "dispensed"
	PrescriptionStatusPartial   = "partially_dispensed"
	PrescriptionStatusCancelled = "cancelled"
)

// Prescription types.
const (
	PrescriptionTypeOutpatient = "outpatient"
	PrescriptionTypeInpatient  = "inpatient"
)

// Prescription is an order for one or more medications for a patient.
// NHIA patients pay a ten percent portion of the total price; the rest
// is claimable once an authorization code is attached.
type Prescription struct {
	Base
	PatientID             uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID              uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	Type                  string     `db:"prescription_type" json:"prescription_type"`
	Status                string     `db:"status" json:"status"`
	Notes                 string     `db:"notes" json:"notes"`
	RequiresAuthorization bool       `db:"requires_authorization" json:"requires_authorization"`
	AuthorizationStatus   string     `db:"authorization_status" json:"authorization_status"`
	AuthorizationCodeID   *uuid.UUID `db:"authorization_code_id" json:"authorization_code_id,omitempty"`
	PrescribedAt          time.Time  `db:"prescribed_at" json:"prescribed_at"`
}

type PrescriptionItem struct {
	Base
	PrescriptionID    uuid.UUID `db:"prescription_id" json:"prescription_id"`
	MedicationID      uuid.UUID `db:"medication_id" json:"medication_id"`
	Dosage            string    `db:"dosage" json:"dosage"`
	Frequency         string    `db:"frequency" json:"frequency"`
	Duration          string    `db:"duration" json:"duration"`
	Quantity          int       `db:"quantity" json:"quantity"`
	QuantityDispensed int       `db:"quantity_dispensed" json:"quantity_dispensed"`
	Instructions      string    `db:"instructions" json:"instructions"`
}

// Remaining reports the undisposed quantity on the item.
func (i *PrescriptionItem) Remaining() int {
	return i.Quantity - i.QuantityDispensed
}

// DispensingLog records one act of handing stock to a patient,
// including which lot it came from.
type DispensingLog struct {
	Base
	PrescriptionItemID uuid.UUID       `db:"prescription_item_id" json:"prescription_item_id"`
	DispensaryID       uuid.UUID       `db:"dispensary_id" json:"dispensary_id"`
	MedicationID       uuid.UUID       `db:"medication_id" json:"medication_id"`
	BatchNumber        string          `db:"batch_number" json:"batch_number"`
	Quantity           int             `db:"quantity" json:"quantity"`
	UnitPrice          decimal.Decimal `db:"unit_price" json:"unit_price"`
	DispensedBy        uuid.UUID       `db:"dispensed_by" json:"dispensed_by"`
	DispensedAt        time.Time       `db:"dispensed_at" json:"dispensed_at"`
}
