package model

import (
	"time"

	"github.com/google/uuid"
)

// TransferKind identifies which pair of tiers a transfer moves stock
// between. Each kind is persisted in its own table but shares one
// state machine.
type TransferKind string

const (
	TransferBulkToActive    TransferKind = "bulk_to_active"
	TransferActiveToDisp    TransferKind = "active_to_dispensary"
	TransferInterDispensary TransferKind = "inter_dispensary"
)

// Transfer lifecycle states.
const (
	TransferStatusPending   = "pending"
	TransferStatusInTransit = "in_transit"
	TransferStatusCompleted = "completed"
	TransferStatusCancelled = "cancelled"
	TransferStatusRejected  = "rejected"
)

// Transfer moves a quantity of one medication between two locations.
// FromID and ToID are interpreted per Kind: bulk store and active
// store for bulk_to_active, active store and dispensary for
// active_to_dispensary, two dispensaries for inter_dispensary.
type Transfer struct {
	Base
	Kind            TransferKind `db:"kind" json:"kind"`
	MedicationID    uuid.UUID    `db:"medication_id" json:"medication_id"`
	FromID          uuid.UUID    `db:"from_id" json:"from_id"`
	ToID            uuid.UUID    `db:"to_id" json:"to_id"`
	Quantity        int          `db:"quantity" json:"quantity"`
	BatchNumber     *string      `db:"batch_number" json:"batch_number,omitempty"`
	Status          string       `db:"status" json:"status"`
	RequestedBy     uuid.UUID    `db:"requested_by" json:"requested_by"`
	ApprovedBy      *uuid.UUID   `db:"approved_by" json:"approved_by,omitempty"`
	ExecutedBy      *uuid.UUID   `db:"executed_by" json:"executed_by,omitempty"`
	ApprovedAt      *time.Time   `db:"approved_at" json:"approved_at,omitempty"`
	CompletedAt     *time.Time   `db:"completed_at" json:"completed_at,omitempty"`
	Notes           string       `db:"notes" json:"notes"`
	SystemInitiated bool         `db:"system_initiated" json:"system_initiated"`
}

// CanTransition reports whether moving from the transfer's current
// status to target is a legal step.
func (t *Transfer) CanTransition(target string) bool {
	switch t.Status {
	case TransferStatusPending:
		return target == TransferStatusInTransit ||
			target == TransferStatusCancelled ||
			target == TransferStatusRejected
	case TransferStatusInTransit:
		return target == TransferStatusCompleted ||
			target == TransferStatusCancelled
	default:
		return false
	}
}

// IsTerminal reports whether the transfer can no longer change state.
func (t *Transfer) IsTerminal() bool {
	switch t.Status {
	case TransferStatusCompleted, TransferStatusCancelled, TransferStatusRejected:
		return true
	}
	return false
}

// TransferFilter represents transfer search parameters
type TransferFilter struct {
	BaseFilter
	Kind         TransferKind `json:"kind" form:"kind"`
	FromID       uuid.UUID    `json:"from_id" form:"from_id"`
	ToID         uuid.UUID    `json:"to_id" form:"to_id"`
	MedicationID uuid.UUID    `json:"medication_id" form:"medication_id"`
}

// TransferStats aggregates counts per status for a kind.
type TransferStats struct {
	Kind      TransferKind `db:"kind" json:"kind"`
	Pending   int          `db:"pending" json:"pending"`
	InTransit int          `db:"in_transit" json:"in_transit"`
	Completed int          `db:"completed" json:"completed"`
	Cancelled int          `db:"cancelled" json:"cancelled"`
	Rejected  int          `db:"rejected" json:"rejected"`
}
