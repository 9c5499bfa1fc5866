package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

type Service struct {
	inv      repository.InventoryRepository
	pharmacy repository.PharmacyRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(inv repository.InventoryRepository, pharmacy repository.PharmacyRepository, logger zerolog.Logger) *Service {
	return &Service{
		inv:      inv,
		pharmacy: pharmacy,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock replaces the reference time used for expiry comparisons.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// ReceivePurchase books incoming supplier stock: one purchase receipt
// row plus the matching bulk store lot, atomically.
func (s *Service) ReceivePurchase(ctx context.Context, receipt *model.PurchaseReceipt) error {
	if receipt.Quantity <= 0 {
		return apperrors.BadRequest("quantity must be positive")
	}
	if !receipt.ExpiryDate.After(s.now()) {
		return apperrors.BadRequest("cannot receive expired stock")
	}
	if _, err := s.pharmacy.GetBulkStore(ctx, receipt.BulkStoreID); err != nil {
		return err
	}
	if _, err := s.pharmacy.GetMedication(ctx, receipt.MedicationID); err != nil {
		return err
	}

	s.warnIfOverCapacity(ctx, model.TierBulkStore, receipt.BulkStoreID, receipt.Quantity)

	return s.inv.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.inv.CreatePurchaseReceipt(ctx, tx, receipt); err != nil {
			return err
		}
		return s.inv.UpsertBulkLot(ctx, tx, &model.BulkStoreInventory{
			BulkStoreID:  receipt.BulkStoreID,
			MedicationID: receipt.MedicationID,
			BatchNumber:  receipt.BatchNumber,
			Quantity:     receipt.Quantity,
			ExpiryDate:   receipt.ExpiryDate,
			UnitCost:     receipt.UnitCost,
			SupplierID:   receipt.SupplierID,
		})
	})
}

// AvailableStock sums non-expired quantity for one medication at one
// location.
func (s *Service) AvailableStock(ctx context.Context, tier string, locationID, medicationID uuid.UUID) (int, error) {
	return s.inv.GetStockLevel(ctx, nil, tier, locationID, medicationID)
}

// StockLevels lists per-medication totals at a location.
func (s *Service) StockLevels(ctx context.Context, tier string, locationID uuid.UUID) ([]*model.StockLevel, error) {
	return s.inv.ListStockLevels(ctx, tier, locationID)
}

// LowStock lists medications at or below their reorder level.
func (s *Service) LowStock(ctx context.Context, tier string, locationID uuid.UUID) ([]*model.StockLevel, error) {
	return s.inv.ListLowStock(ctx, tier, locationID)
}

// ExpiringLots lists lots expiring within the window across all tiers.
func (s *Service) ExpiringLots(ctx context.Context, within time.Duration) ([]*model.ExpiringLot, error) {
	return s.inv.ListExpiringLots(ctx, within)
}

// Consumption records which lots satisfied a withdrawal.
type Consumption struct {
	LotID       uuid.UUID
	BatchNumber string
	Quantity    int
}

// ConsumeBulk draws quantity from a bulk store's lots in
// first-expiry-first order, skipping expired lots. Runs inside the
// caller's transaction.
func (s *Service) ConsumeBulk(ctx context.Context, tx *sqlx.Tx, bulkStoreID, medicationID uuid.UUID, quantity int) ([]Consumption, error) {
	lots, err := s.inv.GetBulkLots(ctx, tx, bulkStoreID, medicationID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planConsumption(ctx, medicationID, quantity, func(yield func(id uuid.UUID, batch string, qty int, expiry *time.Time)) {
		for _, lot := range lots {
			expiry := lot.ExpiryDate
			yield(lot.ID, lot.BatchNumber, lot.Quantity, &expiry)
		}
	})
	if err != nil {
		return nil, err
	}
	for _, c := range plan {
		if err := s.inv.AdjustBulkLot(ctx, tx, c.LotID, -c.Quantity); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// ConsumeActive draws quantity from an active store, first expiry
// first.
func (s *Service) ConsumeActive(ctx context.Context, tx *sqlx.Tx, activeStoreID, medicationID uuid.UUID, quantity int) ([]Consumption, error) {
	lots, err := s.inv.GetActiveLots(ctx, tx, activeStoreID, medicationID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planConsumption(ctx, medicationID, quantity, func(yield func(id uuid.UUID, batch string, qty int, expiry *time.Time)) {
		for _, lot := range lots {
			expiry := lot.ExpiryDate
			yield(lot.ID, lot.BatchNumber, lot.Quantity, &expiry)
		}
	})
	if err != nil {
		return nil, err
	}
	for _, c := range plan {
		if err := s.inv.AdjustActiveLot(ctx, tx, c.LotID, -c.Quantity); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// ConsumeDispensary draws quantity from a dispensary. Batch-tracked
// lots go first in expiry order; unbatched legacy rows are consumed
// last.
func (s *Service) ConsumeDispensary(ctx context.Context, tx *sqlx.Tx, dispensaryID, medicationID uuid.UUID, quantity int) ([]Consumption, error) {
	lots, err := s.inv.GetDispensaryLots(ctx, tx, dispensaryID, medicationID)
	if err != nil {
		return nil, err
	}
	plan, err := s.planConsumption(ctx, medicationID, quantity, func(yield func(id uuid.UUID, batch string, qty int, expiry *time.Time)) {
		for _, lot := range lots {
			yield(lot.ID, lot.BatchNumber, lot.Quantity, lot.ExpiryDate)
		}
	})
	if err != nil {
		return nil, err
	}
	for _, c := range plan {
		if err := s.inv.AdjustDispensaryLot(ctx, tx, c.LotID, -c.Quantity); err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// planConsumption walks lots in the order given, skipping expired
// ones, until quantity is covered. Nil expiry means the lot never
// expires (legacy rows).
func (s *Service) planConsumption(ctx context.Context, medicationID uuid.UUID, quantity int, iterate func(func(uuid.UUID, string, int, *time.Time))) ([]Consumption, error) {
	if quantity <= 0 {
		return nil, apperrors.BadRequest("quantity must be positive")
	}
	now := s.now()
	remaining := quantity
	available := 0
	var plan []Consumption

	iterate(func(id uuid.UUID, batch string, qty int, expiry *time.Time) {
		if expiry != nil && !expiry.After(now) {
			return
		}
		available += qty
		if remaining <= 0 {
			return
		}
		take := qty
		if take > remaining {
			take = remaining
		}
		plan = append(plan, Consumption{LotID: id, BatchNumber: batch, Quantity: take})
		remaining -= take
	})

	if remaining > 0 {
		name := medicationID.String()
		if med, err := s.pharmacy.GetMedication(ctx, medicationID); err == nil {
			name = med.Name
		}
		return nil, &apperrors.InsufficientStockError{
			Medication: name,
			Available:  available,
			Required:   quantity,
		}
	}
	return plan, nil
}

// warnIfOverCapacity logs when a location would exceed its advisory
// capacity. Never blocks the operation.
func (s *Service) warnIfOverCapacity(ctx context.Context, tier string, locationID uuid.UUID, incoming int) {
	capacity := 0
	switch tier {
	case model.TierBulkStore:
		store, err := s.pharmacy.GetBulkStore(ctx, locationID)
		if err != nil {
			return
		}
		capacity = store.Capacity
	case model.TierActiveStore:
		store, err := s.pharmacy.GetActiveStore(ctx, locationID)
		if err != nil {
			return
		}
		capacity = store.Capacity
	default:
		return
	}
	if capacity <= 0 {
		return
	}
	total, err := s.inv.LocationStockTotal(ctx, tier, locationID)
	if err != nil {
		return
	}
	if total+incoming > capacity {
		s.logger.Warn().
			Str("tier", tier).
			Str("location_id", locationID.String()).
			Int("capacity", capacity).
			Int("projected", total+incoming).
			Msg("location over advisory capacity")
	}
}

// CheckCapacity reports the advisory capacity status for a location.
func (s *Service) CheckCapacity(ctx context.Context, tier string, locationID uuid.UUID, incoming int) (*apperrors.CapacityExceededError, error) {
	capacity := 0
	switch tier {
	case model.TierBulkStore:
		store, err := s.pharmacy.GetBulkStore(ctx, locationID)
		if err != nil {
			return nil, err
		}
		capacity = store.Capacity
	case model.TierActiveStore:
		store, err := s.pharmacy.GetActiveStore(ctx, locationID)
		if err != nil {
			return nil, err
		}
		capacity = store.Capacity
	default:
		return nil, nil
	}
	if capacity <= 0 {
		return nil, nil
	}
	total, err := s.inv.LocationStockTotal(ctx, tier, locationID)
	if err != nil {
		return nil, err
	}
	if total+incoming > capacity {
		return &apperrors.CapacityExceededError{
			Location: locationID.String(),
			Capacity: capacity,
			Stock:    total + incoming,
		}, nil
	}
	return nil, nil
}

// AddActiveLot books stock into an active store, warning on capacity.
func (s *Service) AddActiveLot(ctx context.Context, tx *sqlx.Tx, lot *model.ActiveStoreInventory) error {
	s.warnIfOverCapacity(ctx, model.TierActiveStore, lot.ActiveStoreID, lot.Quantity)
	return s.inv.UpsertActiveLot(ctx, tx, lot)
}

// AddDispensaryLot books stock into a dispensary.
func (s *Service) AddDispensaryLot(ctx context.Context, tx *sqlx.Tx, lot *model.MedicationInventory) error {
	return s.inv.UpsertDispensaryLot(ctx, tx, lot)
}

// SearchStock finds medications by name, generic name, or category and
// returns where their stock sits across the active store and
// dispensary tables.
func (s *Service) SearchStock(ctx context.Context, term string) ([]*model.StockSearchRow, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, apperrors.BadRequest("search term is required")
	}
	return s.inv.SearchStock(ctx, term)
}
