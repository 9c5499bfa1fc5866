package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Inventory tiers, outermost first.
const (
	TierBulkStore   = "bulk_store"
	TierActiveStore = "active_store"
	TierDispensary  = "dispensary"
	TierLegacy      = "legacy"
)

// BulkStoreInventory is a stock lot held in a bulk store. Lots are
// keyed by (store, medication, batch, expiry); the same medication may
// appear many times with different batches.
type BulkStoreInventory struct {
	Base
	BulkStoreID  uuid.UUID       `db:"bulk_store_id" json:"bulk_store_id"`
	MedicationID uuid.UUID       `db:"medication_id" json:"medication_id"`
	BatchNumber  string          `db:"batch_number" json:"batch_number"`
	Quantity     int             `db:"quantity" json:"quantity"`
	ExpiryDate   time.Time       `db:"expiry_date" json:"expiry_date"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	SupplierID   *uuid.UUID      `db:"supplier_id" json:"supplier_id,omitempty"`
}

// ActiveStoreInventory is a stock lot in an active store.
type ActiveStoreInventory struct {
	Base
	ActiveStoreID uuid.UUID       `db:"active_store_id" json:"active_store_id"`
	MedicationID  uuid.UUID       `db:"medication_id" json:"medication_id"`
	BatchNumber   string          `db:"batch_number" json:"batch_number"`
	Quantity      int             `db:"quantity" json:"quantity"`
	ExpiryDate    time.Time       `db:"expiry_date" json:"expiry_date"`
	UnitCost      decimal.Decimal `db:"unit_cost" json:"unit_cost"`
}

// MedicationInventory is dispensary-level stock. LegacyStock rows have
// no batch and predate the three-tier scheme; they are consumed after
// batch-tracked rows.
type MedicationInventory struct {
	Base
	DispensaryID uuid.UUID       `db:"dispensary_id" json:"dispensary_id"`
	MedicationID uuid.UUID       `db:"medication_id" json:"medication_id"`
	BatchNumber  string          `db:"batch_number" json:"batch_number"`
	Quantity     int             `db:"quantity" json:"quantity"`
	ExpiryDate   *time.Time      `db:"expiry_date" json:"expiry_date,omitempty"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	LegacyStock  bool            `db:"legacy_stock" json:"legacy_stock"`
}

// StockLevel is an aggregated view of on-hand quantity for one
// medication at one location, summed across non-expired lots.
type StockLevel struct {
	MedicationID   uuid.UUID `db:"medication_id" json:"medication_id"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	Tier           string    `db:"tier" json:"tier"`
	LocationID     uuid.UUID `db:"location_id" json:"location_id"`
	LocationName   string    `db:"location_name" json:"location_name"`
	Quantity       int       `db:"quantity" json:"quantity"`
	EarliestExpiry time.Time `db:"earliest_expiry" json:"earliest_expiry"`
	ReorderLevel   int       `db:"reorder_level" json:"reorder_level"`
}

// ExpiringLot flags a lot approaching its expiry date.
type ExpiringLot struct {
	MedicationID   uuid.UUID `db:"medication_id" json:"medication_id"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	Tier           string    `db:"tier" json:"tier"`
	LocationID     uuid.UUID `db:"location_id" json:"location_id"`
	BatchNumber    string    `db:"batch_number" json:"batch_number"`
	Quantity       int       `db:"quantity" json:"quantity"`
	ExpiryDate     time.Time `db:"expiry_date" json:"expiry_date"`
	DaysLeft       int       `db:"days_left" json:"days_left"`
}

// PurchaseReceipt records incoming stock from a supplier, landing in a
// bulk store.
type PurchaseReceipt struct {
	Base
	BulkStoreID  uuid.UUID       `db:"bulk_store_id" json:"bulk_store_id"`
	MedicationID uuid.UUID       `db:"medication_id" json:"medication_id"`
	BatchNumber  string          `db:"batch_number" json:"batch_number"`
	Quantity     int             `db:"quantity" json:"quantity"`
	ExpiryDate   time.Time       `db:"expiry_date" json:"expiry_date"`
	UnitCost     decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	SupplierID   *uuid.UUID      `db:"supplier_id" json:"supplier_id,omitempty"`
	ReceivedBy   uuid.UUID       `db:"received_by" json:"received_by"`
	ReceivedAt   time.Time       `db:"received_at" json:"received_at"`
}

// StockSearchRow is one line of the unified stock search across
// active store lots and dispensary rows. Source tells the caller which
// physical table the row came from.
type StockSearchRow struct {
	MedicationID   uuid.UUID `db:"medication_id" json:"medication_id"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	GenericName    string    `db:"generic_name" json:"generic_name"`
	Source         string    `db:"source" json:"source"`
	LocationID     uuid.UUID `db:"location_id" json:"location_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
}
