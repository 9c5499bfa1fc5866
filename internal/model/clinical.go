package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuthorizationFields are embedded by every clinical record kind that
// can require an NHIA authorization code.
type AuthorizationFields struct {
	RequiresAuthorization bool       `db:"requires_authorization" json:"requires_authorization"`
	AuthorizationStatus   string     `db:"authorization_status" json:"authorization_status"`
	AuthorizationCodeID   *uuid.UUID `db:"authorization_code_id" json:"authorization_code_id,omitempty"`
	AuthorizationNotes    string     `db:"authorization_notes" json:"authorization_notes,omitempty"`
}

// Consultation is a doctor-patient encounter. Consultations in NHIA
// units are flagged at creation so downstream orders inherit the
// authorization requirement.
type Consultation struct {
	Base
	AuthorizationFields
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ConsultingRoom string    `db:"consulting_room" json:"consulting_room"`
	ChiefComplaint string    `db:"chief_complaint" json:"chief_complaint"`
	Diagnosis      string    `db:"diagnosis" json:"diagnosis"`
	ConsultedAt    time.Time `db:"consulted_at" json:"consulted_at"`
}

// Referral sends a patient from one consultation to a specialty unit.
type Referral struct {
	Base
	AuthorizationFields
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	ConsultationID *uuid.UUID `db:"consultation_id" json:"consultation_id,omitempty"`
	ReferredBy     uuid.UUID  `db:"referred_by" json:"referred_by"`
	Specialty      string     `db:"specialty" json:"specialty"`
	Reason         string     `db:"reason" json:"reason"`
	ReferredAt     time.Time  `db:"referred_at" json:"referred_at"`
}

// TestRequest orders one or more laboratory tests. TotalPrice is the
// sum of the requested tests' prices.
type TestRequest struct {
	Base
	AuthorizationFields
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	ConsultationID *uuid.UUID      `db:"consultation_id" json:"consultation_id,omitempty"`
	RequestedBy    uuid.UUID       `db:"requested_by" json:"requested_by"`
	TotalPrice     decimal.Decimal `db:"total_price" json:"total_price"`
	Status         string          `db:"status" json:"status"`
	RequestedAt    time.Time       `db:"requested_at" json:"requested_at"`
}

// RadiologyOrder orders an imaging study.
type RadiologyOrder struct {
	Base
	AuthorizationFields
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	ConsultationID *uuid.UUID      `db:"consultation_id" json:"consultation_id,omitempty"`
	OrderedBy      uuid.UUID       `db:"ordered_by" json:"ordered_by"`
	StudyType      string          `db:"study_type" json:"study_type"`
	Price          decimal.Decimal `db:"price" json:"price"`
	Status         string          `db:"status" json:"status"`
	OrderedAt      time.Time       `db:"ordered_at" json:"ordered_at"`
}

// Surgery schedules a theatre procedure.
type Surgery struct {
	Base
	AuthorizationFields
	PatientID     uuid.UUID       `db:"patient_id" json:"patient_id"`
	SurgeonID     uuid.UUID       `db:"surgeon_id" json:"surgeon_id"`
	ProcedureName string          `db:"procedure_name" json:"procedure_name"`
	Fee           decimal.Decimal `db:"fee" json:"fee"`
	Status        string          `db:"status" json:"status"`
	ScheduledFor  time.Time       `db:"scheduled_for" json:"scheduled_for"`
}

// SpecialtyRecord is a generic clinical record for the specialty
// units, distinguished by Kind. One table backs all of them.
type SpecialtyRecord struct {
	Base
	AuthorizationFields
	Kind           string          `db:"kind" json:"kind"`
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	ConsultationID *uuid.UUID      `db:"consultation_id" json:"consultation_id,omitempty"`
	AttendedBy     uuid.UUID       `db:"attended_by" json:"attended_by"`
	Fee            decimal.Decimal `db:"fee" json:"fee"`
	Summary        string          `db:"summary" json:"summary"`
	RecordedAt     time.Time       `db:"recorded_at" json:"recorded_at"`
}

// Specialty record kinds backed by the specialty_records table.
const (
	SpecialtyDental         = "dental"
	SpecialtyOphthalmic     = "ophthalmic"
	SpecialtyENT            = "ent"
	SpecialtyOncology       = "oncology"
	SpecialtySCBU           = "scbu"
	SpecialtyANC            = "anc"
	SpecialtyLabor          = "labor"
	SpecialtyICU            = "icu"
	SpecialtyFamilyPlanning = "family_planning"
	SpecialtyGynaeEmergency = "gynae_emergency"
)
