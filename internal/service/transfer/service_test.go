package transfer

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
	"github.com/medhq/hms-core/internal/service/inventory"
	apperrors "github.com/medhq/hms-core/pkg/errors"
	"github.com/medhq/hms-core/pkg/messaging"
)

type fakeTransferRepo struct {
	repository.TransferRepository
	transfers map[uuid.UUID]*model.Transfer
}

func newFakeTransferRepo() *fakeTransferRepo {
	return &fakeTransferRepo{transfers: make(map[uuid.UUID]*model.Transfer)}
}

func (f *fakeTransferRepo) Create(_ context.Context, _ *sqlx.Tx, t *model.Transfer) error {
	t.ID = uuid.New()
	f.transfers[t.ID] = t
	return nil
}

func (f *fakeTransferRepo) Get(_ context.Context, kind model.TransferKind, id uuid.UUID) (*model.Transfer, error) {
	if t, ok := f.transfers[id]; ok && t.Kind == kind {
		return t, nil
	}
	return nil, apperrors.NotFound("transfer not found")
}

func (f *fakeTransferRepo) UpdateStatus(_ context.Context, _ *sqlx.Tx, t *model.Transfer) error {
	if _, ok := f.transfers[t.ID]; !ok {
		return apperrors.NotFound("transfer not found")
	}
	f.transfers[t.ID] = t
	return nil
}

func (f *fakeTransferRepo) ListByStatus(_ context.Context, kind model.TransferKind, status string) ([]*model.Transfer, error) {
	var out []*model.Transfer
	for _, t := range f.transfers {
		if t.Kind == kind && t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeInventoryRepo struct {
	repository.InventoryRepository
	bulkLots    []*model.BulkStoreInventory
	activeLots  []*model.ActiveStoreInventory
	dispLots    []*model.MedicationInventory
	upserted    []*model.ActiveStoreInventory
	upsertedMed []*model.MedicationInventory
	adjustments map[uuid.UUID]int
}

func newFakeInventoryRepo() *fakeInventoryRepo {
	return &fakeInventoryRepo{adjustments: make(map[uuid.UUID]int)}
}

func (f *fakeInventoryRepo) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	return fn(nil)
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
	return f.dispLots, nil
}

func (f *fakeInventoryRepo) AdjustDispensaryLot(_ context.Context, _ *sqlx.Tx, id uuid.UUID, delta int) error {
	f.adjustments[id] += delta
	return nil
}

func (f *fakeInventoryRepo) UpsertActiveLot(_ context.Context, _ *sqlx.Tx, lot *model.ActiveStoreInventory) error {
	f.upserted = append(f.upserted, lot)
	return nil
}

func (f *fakeInventoryRepo) UpsertDispensaryLot(_ context.Context, _ *sqlx.Tx, lot *model.MedicationInventory) error {
	f.upsertedMed = append(f.upsertedMed, lot)
	return nil
}

func (f *fakeInventoryRepo) GetStockLevel(_ context.Context, _ *sqlx.Tx, tier string, _, _ uuid.UUID) (int, error) {
	total := 0
	switch tier {
	case model.TierBulkStore:
		for _, lot := range f.bulkLots {
			total += lot.Quantity
		}
	case model.TierActiveStore:
		for _, lot := range f.activeLots {
			total += lot.Quantity
		}
	default:
		for _, lot := range f.dispLots {
			total += lot.Quantity
		}
	}
	return total, nil
}

type fakePharmacyRepo struct {
	repository.PharmacyRepository
	medications map[uuid.UUID]*model.Medication
}

func (f *fakePharmacyRepo) GetMedication(_ context.Context, id uuid.UUID) (*model.Medication, error) {
	if m, ok := f.medications[id]; ok {
		return m, nil
	}
	return nil, apperrors.NotFound("medication not found")
}

func (f *fakePharmacyRepo) GetBulkStore(_ context.Context, _ uuid.UUID) (*model.BulkStore, error) {
	return nil, apperrors.NotFound("bulk store not found")
}

func (f *fakePharmacyRepo) GetActiveStore(_ context.Context, _ uuid.UUID) (*model.ActiveStore, error) {
	return nil, apperrors.NotFound("active store not found")
}

type fakeBroker struct {
	published []messaging.TransferEvent
}

func (f *fakeBroker) Publish(_ context.Context, _ string, message interface{}) error {
	if e, ok := message.(messaging.TransferEvent); ok {
		f.published = append(f.published, e)
	}
	return nil
}

func (f *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, nil
}

func (f *fakeBroker) Close() error { return nil }

type fixture struct {
	svc       *Service
	transfers *fakeTransferRepo
	inv       *fakeInventoryRepo
	pharmacy  *fakePharmacyRepo
	broker    *fakeBroker
	medID     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	transfers := newFakeTransferRepo()
	inv := newFakeInventoryRepo()
	pharmacy := &fakePharmacyRepo{medications: make(map[uuid.UUID]*model.Medication)}
	broker := &fakeBroker{}

	medID := uuid.New()
	pharmacy.medications[medID] = &model.Medication{
		Base:  model.Base{ID: medID},
		Name:  "Amoxicillin",
		Price: decimal.NewFromInt(50),
	}

	clock := func() time.Time {
		return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	}
	stock := inventory.NewService(inv, pharmacy, zerolog.Nop())
	stock.SetClock(clock)
	svc := NewService(transfers, inv, stock, pharmacy, broker, nil, zerolog.Nop())
	svc.now = clock
	return &fixture{svc: svc, transfers: transfers, inv: inv, pharmacy: pharmacy, broker: broker, medID: medID}
}

func (f *fixture) seedBulkLot(qty int, expiry time.Time, batch string) *model.BulkStoreInventory {
	lot := &model.BulkStoreInventory{
		Base:        model.Base{ID: uuid.New()},
		BatchNumber: batch,
		Quantity:    qty,
		ExpiryDate:  expiry,
		UnitCost:    decimal.NewFromInt(10),
	}
	f.inv.bulkLots = append(f.inv.bulkLots, lot)
	return lot
}

func TestCreatePendingTransfer(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(100, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	created, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     40,
		RequestedBy:  uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusPending, created.Status)
	assert.NotEqual(t, uuid.Nil, created.ID)
	// Creation never moves stock.
	assert.Empty(t, f.inv.adjustments)
}

func TestCreateRejectsSameDispensary(t *testing.T) {
	f := newFixture(t)
	loc := uuid.New()

	_, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferInterDispensary,
		MedicationID: f.medID,
		FromID:       loc,
		ToID:         loc,
		Quantity:     5,
		RequestedBy:  uuid.New(),
	})
	var sameErr *apperrors.SameLocationError
	assert.ErrorAs(t, err, &sameErr)
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(10, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	_, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     50,
		RequestedBy:  uuid.New(),
	})
	var stockErr *apperrors.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Amoxicillin", stockErr.Medication)
}

func TestApproveMovesToInTransit(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(100, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	created, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     40,
		RequestedBy:  uuid.New(),
	})
	require.NoError(t, err)

	approver := uuid.New()
	approved, err := f.svc.Approve(context.Background(), model.TransferBulkToActive, created.ID, approver)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusInTransit, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, approver, *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)
}

func TestExecuteMovesStockAndPreservesBatches(t *testing.T) {
	f := newFixture(t)
	early := f.seedBulkLot(30, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), "EARLY")
	late := f.seedBulkLot(100, time.Date(2027, 6, 1, 0, 0, 0, 0, time.UTC), "LATE")

	created, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     50,
		RequestedBy:  uuid.New(),
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), model.TransferBulkToActive, created.ID, uuid.New())
	require.NoError(t, err)

	executor := uuid.New()
	executed, err := f.svc.Execute(context.Background(), model.TransferBulkToActive, created.ID, executor)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCompleted, executed.Status)
	assert.NotNil(t, executed.CompletedAt)

	assert.Equal(t, -30, f.inv.adjustments[early.ID])
	assert.Equal(t, -20, f.inv.adjustments[late.ID])

	require.Len(t, f.inv.upserted, 2)
	assert.Equal(t, "EARLY", f.inv.upserted[0].BatchNumber)
	assert.Equal(t, 30, f.inv.upserted[0].Quantity)
	assert.Equal(t, "LATE", f.inv.upserted[1].BatchNumber)
	assert.Equal(t, 20, f.inv.upserted[1].Quantity)

	require.Len(t, f.broker.published, 1)
	assert.Equal(t, model.TransferStatusCompleted, f.broker.published[0].Status)
}

func TestExecuteRequiresInTransit(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(100, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	created, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     10,
		RequestedBy:  uuid.New(),
	})
	require.NoError(t, err)

	_, err = f.svc.Execute(context.Background(), model.TransferBulkToActive, created.ID, uuid.New())
	var transErr *apperrors.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, model.TransferStatusPending, transErr.From)
	assert.Empty(t, f.inv.adjustments)
}

func TestCancelInTransitTransfer(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(100, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	created, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     10,
		RequestedBy:  uuid.New(),
	})
	require.NoError(t, err)
	approver := uuid.New()
	_, err = f.svc.Approve(context.Background(), model.TransferBulkToActive, created.ID, approver)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), model.TransferBulkToActive, created.ID, approver, false, "no longer needed")
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCancelled, cancelled.Status)
	assert.Equal(t, "no longer needed", cancelled.Notes)

	// Terminal states cannot be left.
	_, err = f.svc.Cancel(context.Background(), model.TransferBulkToActive, created.ID, approver, false, "")
	assert.Error(t, err)
}

func TestCancelInTransitRestrictedToApprover(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(100, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	created, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     10,
		RequestedBy:  uuid.New(),
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), model.TransferBulkToActive, created.ID, uuid.New())
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), model.TransferBulkToActive, created.ID, uuid.New(), false, "")
	var denied *apperrors.PermissionDeniedError
	require.ErrorAs(t, err, &denied)

	got, err := f.svc.Get(context.Background(), model.TransferBulkToActive, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusInTransit, got.Status)

	// Admin override.
	cancelled, err := f.svc.Cancel(context.Background(), model.TransferBulkToActive, created.ID, uuid.New(), true, "stock recount")
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCancelled, cancelled.Status)
}

func TestCancelPendingByAnyActor(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(100, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	created, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     10,
		RequestedBy:  uuid.New(),
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), model.TransferBulkToActive, created.ID, uuid.New(), false, "")
	require.NoError(t, err)
	assert.Equal(t, model.TransferStatusCancelled, cancelled.Status)
}

func TestRejectOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(100, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	created, err := f.svc.Create(context.Background(), &CreateRequest{
		Kind:         model.TransferBulkToActive,
		MedicationID: f.medID,
		FromID:       uuid.New(),
		ToID:         uuid.New(),
		Quantity:     10,
		RequestedBy:  uuid.New(),
	})
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), model.TransferBulkToActive, created.ID, uuid.New())
	require.NoError(t, err)

	_, err = f.svc.Reject(context.Background(), model.TransferBulkToActive, created.ID, uuid.New(), "wrong item")
	var transErr *apperrors.InvalidTransitionError
	assert.ErrorAs(t, err, &transErr)
}

func TestDeliverInTransitBatch(t *testing.T) {
	f := newFixture(t)
	f.seedBulkLot(200, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), "B-1")

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created, err := f.svc.Create(context.Background(), &CreateRequest{
			Kind:         model.TransferBulkToActive,
			MedicationID: f.medID,
			FromID:       uuid.New(),
			ToID:         uuid.New(),
			Quantity:     10,
			RequestedBy:  uuid.New(),
		})
		require.NoError(t, err)
		_, err = f.svc.Approve(context.Background(), model.TransferBulkToActive, created.ID, uuid.New())
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	delivered, err := f.svc.DeliverInTransit(context.Background(), model.TransferBulkToActive, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
	for _, id := range ids {
		got, err := f.svc.Get(context.Background(), model.TransferBulkToActive, id)
		require.NoError(t, err)
		assert.Equal(t, model.TransferStatusCompleted, got.Status)
	}
}
