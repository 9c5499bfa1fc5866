package pack

import (
	"context"
	"errors"
	"sort"
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
	"github.com/medhq/hms-core/internal/service/transfer"
	apperrors "github.com/medhq/hms-core/pkg/errors"
)

var testNow = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

// fakeInventoryRepo keeps real lot state so cascade transfers observe
// their own effects.
type fakeInventoryRepo struct {
	repository.InventoryRepository
	bulk   []*model.BulkStoreInventory
	active []*model.ActiveStoreInventory
	disp   []*model.MedicationInventory
}

func (f *fakeInventoryRepo) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	bulk := copyLots(f.bulk)
	active := copyLots(f.active)
	disp := copyLots(f.disp)
	if err := fn(nil); err != nil {
		f.bulk, f.active, f.disp = bulk, active, disp
		return err
	}
	return nil
}

func copyLots[T any](in []*T) []*T {
	out := make([]*T, len(in))
	for i, lot := range in {
		c := *lot
		out[i] = &c
	}
	return out
}

func (f *fakeInventoryRepo) GetBulkLots(_ context.Context, _ *sqlx.Tx, storeID, medID uuid.UUID) ([]*model.BulkStoreInventory, error) {
	var out []*model.BulkStoreInventory
	for _, lot := range f.bulk {
		if lot.BulkStoreID == storeID && lot.MedicationID == medID && lot.Quantity > 0 {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func (f *fakeInventoryRepo) AdjustBulkLot(_ context.Context, _ *sqlx.Tx, id uuid.UUID, delta int) error {
	for _, lot := range f.bulk {
		if lot.ID == id {
			lot.Quantity += delta
			return nil
		}
	}
	return apperrors.NotFound("lot not found")
}

func (f *fakeInventoryRepo) GetActiveLots(_ context.Context, _ *sqlx.Tx, storeID, medID uuid.UUID) ([]*model.ActiveStoreInventory, error) {
	var out []*model.ActiveStoreInventory
	for _, lot := range f.active {
		if lot.ActiveStoreID == storeID && lot.MedicationID == medID && lot.Quantity > 0 {
			out = append(out, lot)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiryDate.Before(out[j].ExpiryDate) })
	return out, nil
}

func (f *fakeInventoryRepo) AdjustActiveLot(_ context.Context, _ *sqlx.Tx, id uuid.UUID, delta int) error {
	for _, lot := range f.active {
		if lot.ID == id {
			lot.Quantity += delta
			return nil
		}
	}
	return apperrors.NotFound("lot not found")
}

func (f *fakeInventoryRepo) GetDispensaryLots(_ context.Context, _ *sqlx.Tx, dispID, medID uuid.UUID) ([]*model.MedicationInventory, error) {
	var out []*model.MedicationInventory
	for _, lot := range f.disp {
		if lot.DispensaryID == dispID && lot.MedicationID == medID && lot.Quantity > 0 {
			out = append(out, lot)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepo) AdjustDispensaryLot(_ context.Context, _ *sqlx.Tx, id uuid.UUID, delta int) error {
	for _, lot := range f.disp {
		if lot.ID == id {
			lot.Quantity += delta
			return nil
		}
	}
	return apperrors.NotFound("lot not found")
}

func (f *fakeInventoryRepo) UpsertActiveLot(_ context.Context, _ *sqlx.Tx, lot *model.ActiveStoreInventory) error {
	for _, existing := range f.active {
		if existing.ActiveStoreID == lot.ActiveStoreID &&
			existing.MedicationID == lot.MedicationID &&
			existing.BatchNumber == lot.BatchNumber &&
			existing.ExpiryDate.Equal(lot.ExpiryDate) {
			existing.Quantity += lot.Quantity
			return nil
		}
	}
	lot.ID = uuid.New()
	f.active = append(f.active, lot)
	return nil
}

func (f *fakeInventoryRepo) UpsertDispensaryLot(_ context.Context, _ *sqlx.Tx, lot *model.MedicationInventory) error {
	lot.ID = uuid.New()
	f.disp = append(f.disp, lot)
	return nil
}

func (f *fakeInventoryRepo) GetStockLevel(_ context.Context, _ *sqlx.Tx, tier string, locationID, medID uuid.UUID) (int, error) {
	total := 0
	switch tier {
	case model.TierBulkStore:
		for _, lot := range f.bulk {
			if lot.BulkStoreID == locationID && lot.MedicationID == medID && lot.ExpiryDate.After(testNow) {
				total += lot.Quantity
			}
		}
	case model.TierActiveStore:
		for _, lot := range f.active {
			if lot.ActiveStoreID == locationID && lot.MedicationID == medID && lot.ExpiryDate.After(testNow) {
				total += lot.Quantity
			}
		}
	default:
		for _, lot := range f.disp {
			if lot.DispensaryID != locationID || lot.MedicationID != medID {
				continue
			}
			if lot.ExpiryDate == nil || lot.ExpiryDate.After(testNow) {
				total += lot.Quantity
			}
		}
	}
	return total, nil
}

type fakeTransferRepo struct {
	repository.TransferRepository
	transfers map[uuid.UUID]*model.Transfer
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
	f.transfers[t.ID] = t
	return nil
}

type fakePharmacyRepo struct {
	repository.PharmacyRepository
	medications  map[uuid.UUID]*model.Medication
	bulkStores   []*model.BulkStore
	activeStores map[uuid.UUID]*model.ActiveStore
}

func (f *fakePharmacyRepo) GetMedication(_ context.Context, id uuid.UUID) (*model.Medication, error) {
	if m, ok := f.medications[id]; ok {
		return m, nil
	}
	return nil, apperrors.NotFound("medication not found")
}

func (f *fakePharmacyRepo) ListBulkStores(_ context.Context) ([]*model.BulkStore, error) {
	return f.bulkStores, nil
}

func (f *fakePharmacyRepo) GetBulkStore(_ context.Context, id uuid.UUID) (*model.BulkStore, error) {
	for _, s := range f.bulkStores {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperrors.NotFound("bulk store not found")
}

func (f *fakePharmacyRepo) GetActiveStore(_ context.Context, id uuid.UUID) (*model.ActiveStore, error) {
	for _, s := range f.activeStores {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, apperrors.NotFound("active store not found")
}

func (f *fakePharmacyRepo) GetActiveStoreByDispensary(_ context.Context, dispensaryID uuid.UUID) (*model.ActiveStore, error) {
	if s, ok := f.activeStores[dispensaryID]; ok {
		return s, nil
	}
	return nil, apperrors.NotFound("active store not found")
}

type fakeAssignmentRepo struct {
	repository.AssignmentRepository
	assignments []*model.PharmacistAssignment
}

func (f *fakeAssignmentRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]*model.PharmacistAssignment, error) {
	var out []*model.PharmacistAssignment
	for _, a := range f.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakePackRepo struct {
	repository.PackRepository
	packs  map[uuid.UUID]*model.MedicalPack
	items  map[uuid.UUID][]*model.PackItem
	orders map[uuid.UUID]*model.PackOrder
}

func (f *fakePackRepo) GetPack(_ context.Context, id uuid.UUID) (*model.MedicalPack, error) {
	if p, ok := f.packs[id]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("pack not found")
}

func (f *fakePackRepo) GetPackItems(_ context.Context, packID uuid.UUID) ([]*model.PackItem, error) {
	return f.items[packID], nil
}

func (f *fakePackRepo) CreateOrder(_ context.Context, order *model.PackOrder) error {
	order.ID = uuid.New()
	f.orders[order.ID] = order
	return nil
}

func (f *fakePackRepo) GetOrder(_ context.Context, id uuid.UUID) (*model.PackOrder, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return nil, apperrors.NotFound("pack order not found")
}

func (f *fakePackRepo) UpdateOrder(_ context.Context, _ *sqlx.Tx, order *model.PackOrder) error {
	f.orders[order.ID] = order
	return nil
}

type fakeRxRepo struct {
	repository.PrescriptionRepository
	created      []*model.Prescription
	createdItems [][]*model.PrescriptionItem
	logs         []*model.DispensingLog
	statuses     map[uuid.UUID]string
	createErr    error
}

func (f *fakeRxRepo) Create(_ context.Context, _ *sqlx.Tx, p *model.Prescription, items []*model.PrescriptionItem) error {
	if f.createErr != nil {
		return f.createErr
	}
	p.ID = uuid.New()
	for _, item := range items {
		item.ID = uuid.New()
		item.PrescriptionID = p.ID
	}
	f.created = append(f.created, p)
	f.createdItems = append(f.createdItems, items)
	return nil
}

func (f *fakeRxRepo) GetItems(_ context.Context, prescriptionID uuid.UUID) ([]*model.PrescriptionItem, error) {
	for i, p := range f.created {
		if p.ID == prescriptionID {
			return f.createdItems[i], nil
		}
	}
	return nil, nil
}

func (f *fakeRxRepo) RecordDispense(_ context.Context, _ *sqlx.Tx, itemID uuid.UUID, quantity int, log *model.DispensingLog) error {
	for _, items := range f.createdItems {
		for _, item := range items {
			if item.ID == itemID {
				item.QuantityDispensed += quantity
			}
		}
	}
	f.logs = append(f.logs, log)
	return nil
}

func (f *fakeRxRepo) UpdateStatus(_ context.Context, _ *sqlx.Tx, id uuid.UUID, status string) error {
	if f.statuses == nil {
		f.statuses = make(map[uuid.UUID]string)
	}
	f.statuses[id] = status
	return nil
}

type fixture struct {
	svc          *Service
	packs        *fakePackRepo
	inv          *fakeInventoryRepo
	pharmacy     *fakePharmacyRepo
	rx           *fakeRxRepo
	medID        uuid.UUID
	bulkStoreID  uuid.UUID
	activeID     uuid.UUID
	dispensaryID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	medID := uuid.New()
	bulkStoreID := uuid.New()
	activeID := uuid.New()
	dispensaryID := uuid.New()

	pharmacy := &fakePharmacyRepo{
		medications: map[uuid.UUID]*model.Medication{
			medID: {Base: model.Base{ID: medID}, Name: "Oxytocin", Price: decimal.NewFromInt(200)},
		},
		bulkStores: []*model.BulkStore{{Base: model.Base{ID: bulkStoreID}, Name: "Main Bulk"}},
		activeStores: map[uuid.UUID]*model.ActiveStore{
			dispensaryID: {Base: model.Base{ID: activeID}, DispensaryID: dispensaryID},
		},
	}
	inv := &fakeInventoryRepo{}
	transfers := &fakeTransferRepo{transfers: make(map[uuid.UUID]*model.Transfer)}
	packs := &fakePackRepo{
		packs:  make(map[uuid.UUID]*model.MedicalPack),
		items:  make(map[uuid.UUID][]*model.PackItem),
		orders: make(map[uuid.UUID]*model.PackOrder),
	}
	rx := &fakeRxRepo{}

	stock := inventory.NewService(inv, pharmacy, zerolog.Nop())
	stock.SetClock(func() time.Time { return testNow })
	transferSvc := transfer.NewService(transfers, inv, stock, pharmacy, nil, nil, zerolog.Nop())
	svc := NewService(packs, pharmacy, &fakeAssignmentRepo{}, inv, stock, transferSvc, rx, nil, zerolog.Nop())
	svc.now = func() time.Time { return testNow }

	return &fixture{
		svc: svc, packs: packs, inv: inv, pharmacy: pharmacy, rx: rx,
		medID: medID, bulkStoreID: bulkStoreID, activeID: activeID, dispensaryID: dispensaryID,
	}
}

func (f *fixture) seedPack(items ...*model.PackItem) uuid.UUID {
	packID := uuid.New()
	f.packs.packs[packID] = &model.MedicalPack{
		Base:     model.Base{ID: packID},
		Name:     "Cesarean Delivery Pack",
		PackType: model.PackTypeLabor,
		IsActive: true,
	}
	for _, item := range items {
		item.PackID = packID
	}
	f.packs.items[packID] = items
	return packID
}

func (f *fixture) seedOrder(packID uuid.UUID) *model.PackOrder {
	order := &model.PackOrder{
		Base:         model.Base{ID: uuid.New()},
		PackID:       packID,
		PatientID:    uuid.New(),
		DispensaryID: f.dispensaryID,
		Status:       model.PackOrderStatusPending,
		OrderedBy:    uuid.New(),
	}
	f.packs.orders[order.ID] = order
	return order
}

func expiry(months int) time.Time {
	return testNow.AddDate(0, months, 0)
}

func TestProcessOrderCascadesTransfers(t *testing.T) {
	f := newFixture(t)

	// Bulk has plenty, active has 5, dispensary empty, pack wants 10.
	f.inv.bulk = []*model.BulkStoreInventory{{
		Base: model.Base{ID: uuid.New()}, BulkStoreID: f.bulkStoreID,
		MedicationID: f.medID, BatchNumber: "B-1", Quantity: 100, ExpiryDate: expiry(12),
	}}
	f.inv.active = []*model.ActiveStoreInventory{{
		Base: model.Base{ID: uuid.New()}, ActiveStoreID: f.activeID,
		MedicationID: f.medID, BatchNumber: "B-0", Quantity: 5, ExpiryDate: expiry(6),
	}}

	packID := f.seedPack(&model.PackItem{MedicationID: f.medID, Quantity: 10})
	order := f.seedOrder(packID)

	processed, err := f.svc.ProcessOrder(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, model.PackOrderStatusReady, processed.Status)
	require.NotNil(t, processed.PrescriptionID)
	assert.NotNil(t, processed.ProcessedAt)

	bulkLevel, _ := f.inv.GetStockLevel(context.Background(), nil, model.TierBulkStore, f.bulkStoreID, f.medID)
	activeLevel, _ := f.inv.GetStockLevel(context.Background(), nil, model.TierActiveStore, f.activeID, f.medID)
	dispLevel, _ := f.inv.GetStockLevel(context.Background(), nil, model.TierDispensary, f.dispensaryID, f.medID)
	assert.Equal(t, 95, bulkLevel)
	assert.Equal(t, 0, activeLevel)
	assert.Equal(t, 10, dispLevel)

	require.Len(t, f.rx.created, 1)
	assert.Equal(t, model.PrescriptionStatusApproved, f.rx.created[0].Status)
	assert.Equal(t, model.PrescriptionTypeOutpatient, f.rx.created[0].Type)
	require.Len(t, f.rx.createdItems[0], 1)
	assert.Equal(t, 10, f.rx.createdItems[0][0].Quantity)
}

func TestProcessOrderRollsBackCascadeWithPrescription(t *testing.T) {
	f := newFixture(t)
	f.rx.createErr = errors.New("prescription write failed")

	f.inv.bulk = []*model.BulkStoreInventory{{
		Base: model.Base{ID: uuid.New()}, BulkStoreID: f.bulkStoreID,
		MedicationID: f.medID, BatchNumber: "B-1", Quantity: 100, ExpiryDate: expiry(12),
	}}
	f.inv.active = []*model.ActiveStoreInventory{{
		Base: model.Base{ID: uuid.New()}, ActiveStoreID: f.activeID,
		MedicationID: f.medID, BatchNumber: "B-0", Quantity: 5, ExpiryDate: expiry(6),
	}}

	packID := f.seedPack(&model.PackItem{MedicationID: f.medID, Quantity: 10})
	order := f.seedOrder(packID)

	_, err := f.svc.ProcessOrder(context.Background(), order.ID, uuid.New())
	require.Error(t, err)

	// The cascade transfers ride the same transaction as the
	// prescription, so the stock moves are undone with it.
	bulkLevel, _ := f.inv.GetStockLevel(context.Background(), nil, model.TierBulkStore, f.bulkStoreID, f.medID)
	activeLevel, _ := f.inv.GetStockLevel(context.Background(), nil, model.TierActiveStore, f.activeID, f.medID)
	dispLevel, _ := f.inv.GetStockLevel(context.Background(), nil, model.TierDispensary, f.dispensaryID, f.medID)
	assert.Equal(t, 100, bulkLevel)
	assert.Equal(t, 5, activeLevel)
	assert.Equal(t, 0, dispLevel)

	assert.Empty(t, f.rx.created)
	assert.Equal(t, model.PackOrderStatusPending, f.packs.orders[order.ID].Status)
}

func TestProcessOrderInpatientWhenSurgeryLinked(t *testing.T) {
	f := newFixture(t)
	f.inv.disp = []*model.MedicationInventory{{
		Base: model.Base{ID: uuid.New()}, DispensaryID: f.dispensaryID,
		MedicationID: f.medID, BatchNumber: "B-1", Quantity: 20,
	}}

	packID := f.seedPack(&model.PackItem{MedicationID: f.medID, Quantity: 10})
	order := f.seedOrder(packID)
	surgeryID := uuid.New()
	order.SurgeryID = &surgeryID

	_, err := f.svc.ProcessOrder(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)
	require.Len(t, f.rx.created, 1)
	assert.Equal(t, model.PrescriptionTypeInpatient, f.rx.created[0].Type)
}

func TestProcessOrderAnnotatesShortfall(t *testing.T) {
	f := newFixture(t)
	// No stock anywhere for the second item.
	otherMed := uuid.New()
	f.pharmacy.medications[otherMed] = &model.Medication{
		Base: model.Base{ID: otherMed}, Name: "Adrenaline", Price: decimal.NewFromInt(80),
	}
	f.inv.disp = []*model.MedicationInventory{{
		Base: model.Base{ID: uuid.New()}, DispensaryID: f.dispensaryID,
		MedicationID: f.medID, BatchNumber: "B-1", Quantity: 20,
	}}

	packID := f.seedPack(
		&model.PackItem{MedicationID: f.medID, Quantity: 10},
		&model.PackItem{MedicationID: otherMed, Quantity: 5},
	)
	order := f.seedOrder(packID)

	processed, err := f.svc.ProcessOrder(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, model.PackOrderStatusReady, processed.Status)
	assert.Contains(t, processed.Notes, "short:Adrenaline")

	// The short item is excluded from the prescription.
	require.Len(t, f.rx.createdItems[0], 1)
	assert.Equal(t, f.medID, f.rx.createdItems[0][0].MedicationID)
}

func TestProcessOrderRequiresApprovalWhenPackDemandsIt(t *testing.T) {
	f := newFixture(t)
	packID := f.seedPack(&model.PackItem{MedicationID: f.medID, Quantity: 1})
	f.packs.packs[packID].RequiresApproval = true
	order := f.seedOrder(packID)

	_, err := f.svc.ProcessOrder(context.Background(), order.ID, uuid.New())
	var transErr *apperrors.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)

	_, err = f.svc.ApproveOrder(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)

	f.inv.disp = []*model.MedicationInventory{{
		Base: model.Base{ID: uuid.New()}, DispensaryID: f.dispensaryID,
		MedicationID: f.medID, BatchNumber: "B-1", Quantity: 5,
	}}
	processed, err := f.svc.ProcessOrder(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, model.PackOrderStatusReady, processed.Status)
}

func TestDispenseOrderRequiresReady(t *testing.T) {
	f := newFixture(t)
	packID := f.seedPack(&model.PackItem{MedicationID: f.medID, Quantity: 1})
	order := f.seedOrder(packID)

	_, err := f.svc.DispenseOrder(context.Background(), order.ID, uuid.New())
	var transErr *apperrors.InvalidTransitionError
	require.ErrorAs(t, err, &transErr)

	order.Status = model.PackOrderStatusReady
	dispensed, err := f.svc.DispenseOrder(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, model.PackOrderStatusDispensed, dispensed.Status)
	assert.NotNil(t, dispensed.DispensedAt)
	assert.NotNil(t, dispensed.DispensedBy)
}

func TestCancelOrderBlockedAfterDispense(t *testing.T) {
	f := newFixture(t)
	packID := f.seedPack(&model.PackItem{MedicationID: f.medID, Quantity: 1})
	order := f.seedOrder(packID)
	order.Status = model.PackOrderStatusDispensed

	_, err := f.svc.CancelOrder(context.Background(), order.ID, "changed plans")
	var transErr *apperrors.InvalidTransitionError
	assert.ErrorAs(t, err, &transErr)
}

func TestDispenseOrderWritesDispensingLogs(t *testing.T) {
	f := newFixture(t)
	f.inv.bulk = []*model.BulkStoreInventory{{
		Base: model.Base{ID: uuid.New()}, BulkStoreID: f.bulkStoreID,
		MedicationID: f.medID, BatchNumber: "B-1", Quantity: 50, ExpiryDate: expiry(12),
	}}

	packID := f.seedPack(&model.PackItem{MedicationID: f.medID, Quantity: 10})
	order := f.seedOrder(packID)

	processed, err := f.svc.ProcessOrder(context.Background(), order.ID, uuid.New())
	require.NoError(t, err)

	pharmacist := uuid.New()
	dispensed, err := f.svc.DispenseOrder(context.Background(), processed.ID, pharmacist)
	require.NoError(t, err)
	assert.Equal(t, model.PackOrderStatusDispensed, dispensed.Status)

	require.Len(t, f.rx.logs, 1)
	log := f.rx.logs[0]
	assert.Equal(t, f.dispensaryID, log.DispensaryID)
	assert.Equal(t, f.medID, log.MedicationID)
	assert.Equal(t, 10, log.Quantity)
	assert.Equal(t, pharmacist, log.DispensedBy)
	assert.True(t, log.UnitPrice.Equal(decimal.NewFromInt(200)))

	assert.Equal(t, 10, f.rx.createdItems[0][0].QuantityDispensed)
	require.NotNil(t, processed.PrescriptionID)
	assert.Equal(t, model.PrescriptionStatusDispensed, f.rx.statuses[*processed.PrescriptionID])

	dispLevel, _ := f.inv.GetStockLevel(context.Background(), nil, model.TierDispensary, f.dispensaryID, f.medID)
	assert.Equal(t, 0, dispLevel)
}
