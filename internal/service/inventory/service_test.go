package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

type fakeInventoryRepo struct {
	repository.InventoryRepository
	bulkLots       []*model.BulkStoreInventory
	activeLots     []*model.ActiveStoreInventory
	dispensaryLots []*model.MedicationInventory
	receipts       []*model.PurchaseReceipt
	adjustments    map[uuid.UUID]int
	stockTotal     int
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{adjustments: make(map[uuid.UUID]int)}
}

func (f *fakeInventoryRepo) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
}

func (f *fakeInventoryRepo) UpsertBulkLot(_ context.Context, _ *sqlx.Tx, lot *model.BulkStoreInventory) error {
	lot.ID = uuid.New()
	f.bulkLots = append(f.bulkLots, lot)
	return nil
}

func (f *fakeInventoryRepo) GetBulkLots(_ context.Context, _ *sqlx.Tx, _, _ uuid.UUID) ([]*model.BulkStoreInventory, error) {
	return f.bulkLots, nil
}

func (f *fakeInventoryRepo) AdjustBulkLot(_ context.Context, _ *sqlx.Tx, id uuid.UUID, delta int) error {
	f.adjustments[id] += delta
	return nil
}

func (f *fakeInventoryRepo) GetActiveLots(_ context.Context, _ *sqlx.Tx, _, _ uuid.UUID) ([]*model.ActiveStoreInventory, error) {
	return f.activeLots, nil
}

func (f *fakeInventoryRepo) AdjustActiveLot(_ context.Context, _ *sqlx.Tx, id uuid.UUID, delta int) error {
	f.adjustments[id] += delta
	return nil
}

func (f *fakeInventoryRepo) GetDispensaryLots(_ context.Context, _ *sqlx.Tx, _, _ uuid.UUID) ([]*model.MedicationInventory, error) {
	return f.dispensaryLots, nil
}

func (f *fakeInventoryRepo) AdjustDispensaryLot(_ context.Context, _ *sqlx.Tx, id uuid.UUID, delta int) error {
	f.adjustments[id] += delta
	return nil
}

func (f *fakeInventoryRepo) CreatePurchaseReceipt(_ context.Context, _ *sqlx.Tx, r *model.PurchaseReceipt) error {
	r.ID = uuid.New()
	f.receipts = append(f.receipts, r)
	return nil
}

func (f *fakeInventoryRepo) LocationStockTotal(_ context.Context, _ string, _ uuid.UUID) (int, error) {
	return f.stockTotal, nil
}

type fakePharmacyRepo struct {
	repository.PharmacyRepository
	medications  map[uuid.UUID]*model.Medication
	bulkStores   map[uuid.UUID]*model.BulkStore
	activeStores map[uuid.UUID]*model.ActiveStore
}

func newFakePharmacyRepo() *fakePharmacyRepo {
	return &fakePharmacyRepo{
		medications:  make(map[uuid.UUID]*model.Medication),
		bulkStores:   make(map[uuid.UUID]*model.BulkStore),
		activeStores: make(map[uuid.UUID]*model.ActiveStore),
	}
}

func (f *fakePharmacyRepo) GetMedication(_ context.Context, id uuid.UUID) (*model.Medication, error) {
	if m, ok := f.medications[id]; ok {
		return m, nil
	}
	return nil, apperrors.NotFound("medication not found")
}

func (f *fakePharmacyRepo) GetBulkStore(_ context.Context, id uuid.UUID) (*model.BulkStore, error) {
	if s, ok := f.bulkStores[id]; ok {
		return s, nil
	}
	return nil, apperrors.NotFound("bulk store not found")
}

func (f *fakePharmacyRepo) GetActiveStore(_ context.Context, id uuid.UUID) (*model.ActiveStore, error) {
	if s, ok := f.activeStores[id]; ok {
		return s, nil
	}
	return nil, apperrors.NotFound("active store not found")
}

func newTestService() (*Service, *fakeInventoryRepo, *fakePharmacyRepo) {
	inv := newFakeInventoryRepo()
	pharmacy := newFakePharmacyRepo()
	svc := NewService(inv, pharmacy, zerolog.Nop())
	svc.now = func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	}
	return svc, inv, pharmacy
}

func seedMedication(pharmacy *fakePharmacyRepo, name string) uuid.UUID {
	id := uuid.New()
	pharmacy.medications[id] = &model.Medication{
		Base:  model.Base{ID: id},
		Name:  name,
		Price: decimal.NewFromInt(100),
	}
	return id
}

func TestReceivePurchaseWritesReceiptAndLot(t *testing.T) {
	svc, inv, pharmacy := newTestService()
	medID := seedMedication(pharmacy, "Paracetamol")
	storeID := uuid.New()
	pharmacy.bulkStores[storeID] = &model.BulkStore{Base: model.Base{ID: storeID}, Name: "Main Bulk"}

	err := svc.ReceivePurchase(context.Background(), &model.PurchaseReceipt{
		BulkStoreID:  storeID,
		MedicationID: medID,
		BatchNumber:  "B-100",
		Quantity:     500,
		ExpiryDate:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		UnitCost:     decimal.NewFromInt(12),
		ReceivedBy:   uuid.New(),
	})
	require.NoError(t, err)

	require.Len(t, inv.receipts, 1)
	require.Len(t, inv.bulkLots, 1)
	assert.Equal(t, "B-100", inv.bulkLots[0].BatchNumber)
	assert.Equal(t, 500, inv.bulkLots[0].Quantity)
}

func TestReceivePurchaseRejectsBadInput(t *testing.T) {
	svc, _, pharmacy := newTestService()
	medID := seedMedication(pharmacy, "Paracetamol")
	storeID := uuid.New()
	pharmacy.bulkStores[storeID] = &model.BulkStore{Base: model.Base{ID: storeID}}

	err := svc.ReceivePurchase(context.Background(), &model.PurchaseReceipt{
		BulkStoreID:  storeID,
		MedicationID: medID,
		Quantity:     0,
		ExpiryDate:   time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)

	err = svc.ReceivePurchase(context.Background(), &model.PurchaseReceipt{
		BulkStoreID:  storeID,
		MedicationID: medID,
		Quantity:     10,
		ExpiryDate:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, err)
}

func TestConsumeBulkDrawsEarliestExpiryFirst(t *testing.T) {
	svc, inv, pharmacy := newTestService()
	medID := seedMedication(pharmacy, "Amoxicillin")
	storeID := uuid.New()

	early := &model.BulkStoreInventory{
		Base:       model.Base{ID: uuid.New()},
		Quantity:   30,
		ExpiryDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	late := &model.BulkStoreInventory{
		Base:       model.Base{ID: uuid.New()},
		Quantity:   100,
		ExpiryDate: time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	inv.bulkLots = []*model.BulkStoreInventory{early, late}

	plan, err := svc.ConsumeBulk(context.Background(), nil, storeID, medID, 50)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, early.ID, plan[0].LotID)
	assert.Equal(t, 30, plan[0].Quantity)
	assert.Equal(t, late.ID, plan[1].LotID)
	assert.Equal(t, 20, plan[1].Quantity)
	assert.Equal(t, -30, inv.adjustments[early.ID])
	assert.Equal(t, -20, inv.adjustments[late.ID])
}

func TestConsumeBulkSkipsExpiredLots(t *testing.T) {
	svc, inv, pharmacy := newTestService()
	medID := seedMedication(pharmacy, "Amoxicillin")
	storeID := uuid.New()

	expired := &model.BulkStoreInventory{
		Base:       model.Base{ID: uuid.New()},
		Quantity:   1000,
		ExpiryDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	fresh := &model.BulkStoreInventory{
		Base:       model.Base{ID: uuid.New()},
		Quantity:   40,
		ExpiryDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	inv.bulkLots = []*model.BulkStoreInventory{expired, fresh}

	plan, err := svc.ConsumeBulk(context.Background(), nil, storeID, medID, 40)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, fresh.ID, plan[0].LotID)
	assert.Zero(t, inv.adjustments[expired.ID])
}

func TestConsumeBulkInsufficientStock(t *testing.T) {
	svc, inv, pharmacy := newTestService()
	medID := seedMedication(pharmacy, "Ibuprofen")
	storeID := uuid.New()

	inv.bulkLots = []*model.BulkStoreInventory{{
		Base:       model.Base{ID: uuid.New()},
		Quantity:   10,
		ExpiryDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	}}

	_, err := svc.ConsumeBulk(context.Background(), nil, storeID, medID, 25)
	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Ibuprofen", stockErr.Medication)
	assert.Equal(t, 10, stockErr.Available)
	assert.Equal(t, 25, stockErr.Required)
	assert.Empty(t, inv.adjustments)
}

func TestConsumeDispensaryUsesLegacyRowsLast(t *testing.T) {
	svc, inv, pharmacy := newTestService()
	medID := seedMedication(pharmacy, "Metformin")
	dispensaryID := uuid.New()

	expiry := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	batched := &model.MedicationInventory{
		Base:        model.Base{ID: uuid.New()},
		BatchNumber: "B-7",
		Quantity:    15,
		ExpiryDate:  &expiry,
	}
	legacy := &model.MedicationInventory{
		Base:        model.Base{ID: uuid.New()},
		Quantity:    50,
		LegacyStock: true,
	}
	// Repository ordering puts legacy rows after batch-tracked rows.
	inv.dispensaryLots = []*model.MedicationInventory{batched, legacy}

	plan, err := svc.ConsumeDispensary(context.Background(), nil, dispensaryID, medID, 20)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, batched.ID, plan[0].LotID)
	assert.Equal(t, 15, plan[0].Quantity)
	assert.Equal(t, legacy.ID, plan[1].LotID)
	assert.Equal(t, 5, plan[1].Quantity)
}

func TestConsumeRejectsNonPositiveQuantity(t *testing.T) {
	svc, _, pharmacy := newTestService()
	medID := seedMedication(pharmacy, "Metformin")

	_, err := svc.ConsumeBulk(context.Background(), nil, uuid.New(), medID, 0)
	assert.Error(t, err)
	_, err = svc.ConsumeActive(context.Background(), nil, uuid.New(), medID, -3)
	assert.Error(t, err)
}

func TestCheckCapacity(t *testing.T) {
	svc, inv, pharmacy := newTestService()
	storeID := uuid.New()
	pharmacy.bulkStores[storeID] = &model.BulkStore{
		Base:     model.Base{ID: storeID},
		Capacity: 100,
	}
	inv.stockTotal = 90

	warn, err := svc.CheckCapacity(context.Background(), model.TierBulkStore, storeID, 20)
	require.NoError(t, err)
	require.NotNil(t, warn)
	assert.Equal(t, 100, warn.Capacity)
	assert.Equal(t, 110, warn.Stock)

	warn, err = svc.CheckCapacity(context.Background(), model.TierBulkStore, storeID, 5)
	require.NoError(t, err)
	assert.Nil(t, warn)
}

func TestCheckCapacityUnsetIsUnlimited(t *testing.T) {
	svc, inv, pharmacy := newTestService()
	storeID := uuid.New()
	pharmacy.bulkStores[storeID] = &model.BulkStore{Base: model.Base{ID: storeID}}
	inv.stockTotal = 100000

	warn, err := svc.CheckCapacity(context.Background(), model.TierBulkStore, storeID, 1)
	require.NoError(t, err)
	assert.Nil(t, warn)
}

func TestSearchStockRequiresTerm(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.SearchStock(context.Background(), "   ")
	assert.Error(t, err)
}
