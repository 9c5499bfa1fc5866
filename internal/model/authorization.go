package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Authorization code lifecycle.
const (
	AuthCodeStatusActive    = "active"
	AuthCodeStatusUsed      = "used"
	AuthCodeStatusExpired   = "expired"
	AuthCodeStatusCancelled = "cancelled"
)

// Record-level authorization states carried on clinical records.
const (
	RecordAuthNotRequired = "not_required"
	RecordAuthRequired    = "required"
	RecordAuthPending     = "pending"
	RecordAuthAuthorized  = "authorized"
	RecordAuthRejected    = "rejected"
	RecordAuthExpired     = "expired"
)

// AuthorizationCode is an NHIA claim authorization issued by the desk
// office against a specific clinical record. Codes follow the format
// AUTH-YYYYMMDD-XXXXXX.
type AuthorizationCode struct {
	Base
	Code        string          `db:"code" json:"code"`
	PatientID   uuid.UUID       `db:"patient_id" json:"patient_id"`
	RecordKind  string          `db:"record_kind" json:"record_kind"`
	RecordID    uuid.UUID       `db:"record_id" json:"record_id"`
	ServiceType string          `db:"service_type" json:"service_type"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Status      string          `db:"status" json:"status"`
	IssuedBy    uuid.UUID       `db:"issued_by" json:"issued_by"`
	ExpiresAt   time.Time       `db:"expires_at" json:"expires_at"`
	UsedAt      *time.Time      `db:"used_at" json:"used_at,omitempty"`
	Notes       string          `db:"notes" json:"notes"`
}

// IsValid reports whether the code can still back a claim.
func (c *AuthorizationCode) IsValid(now time.Time) bool {
	return c.Status == AuthCodeStatusActive && now.Before(c.ExpiresAt)
}

// PendingAuthorization is a desk office dashboard row describing a
// clinical record waiting for a code.
type PendingAuthorization struct {
	RecordKind  string          `json:"record_kind"`
	RecordID    uuid.UUID       `json:"record_id"`
	PatientID   uuid.UUID       `json:"patient_id"`
	PatientName string          `json:"patient_name"`
	ServiceType string          `json:"service_type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RequestedAt time.Time       `json:"requested_at"`
}
