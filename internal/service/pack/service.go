package pack

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	"github.com/medhq/hms-core/internal/service/inventory"
	"github.com/medhq/hms-core/internal/service/transfer"
	apperrors "github.com/medhq/hms-core/pkg/errors"
	"github.com/medhq/hms-core/pkg/metrics"
)

const defaultInstructions = "As directed by the procedure protocol"

// Service processes medical pack orders. Processing cascades stock
// from the bulk store through the active store into the target
// dispensary and backs the order with an approved prescription.
type Service struct {
	packs       repository.PackRepository
	pharmacy    repository.PharmacyRepository
	assignments repository.AssignmentRepository
	inv         repository.InventoryRepository
	stock       *inventory.Service
	transfers   *transfer.Service
	rx          repository.PrescriptionRepository
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	packs repository.PackRepository,
	pharmacy repository.PharmacyRepository,
	assignments repository.AssignmentRepository,
	inv repository.InventoryRepository,
	stock *inventory.Service,
	transfers *transfer.Service,
	rx repository.PrescriptionRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		packs:       packs,
		pharmacy:    pharmacy,
		assignments: assignments,
		inv:         inv,
		stock:       stock,
		transfers:   transfers,
		rx:          rx,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateOrder books a pending pack order for a patient.
func (s *Service) CreateOrder(ctx context.Context, order *model.PackOrder) error {
	pack, err := s.packs.GetPack(ctx, order.PackID)
	if err != nil {
		return err
	}
	if !pack.IsActive {
		return apperrors.BadRequest("pack is not active")
	}
	order.Status = model.PackOrderStatusPending
	return s.packs.CreateOrder(ctx, order)
}

// ApproveOrder moves a pending order to approved. Only meaningful for
// packs that require approval; harmless otherwise.
func (s *Service) ApproveOrder(ctx context.Context, orderID, approverID uuid.UUID) (*model.PackOrder, error) {
	order, err := s.packs.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.PackOrderStatusPending {
		return nil, &apperrors.InvalidTransitionError{From: order.Status, To: model.PackOrderStatusApproved}
	}
	order.Status = model.PackOrderStatusApproved
	order.ProcessedBy = &approverID
	if err := s.packs.UpdateOrder(ctx, nil, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ProcessOrder prepares the order: for every pack item it tops up the
// dispensary through system-initiated transfers, then creates the
// backing prescription and marks the order ready. Items the bulk store
// cannot cover are annotated short in the order notes and skipped.
func (s *Service) ProcessOrder(ctx context.Context, orderID, userID uuid.UUID) (*model.PackOrder, error) {
	order, err := s.packs.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	pack, err := s.packs.GetPack(ctx, order.PackID)
	if err != nil {
		return nil, err
	}
	if pack.RequiresApproval && order.Status != model.PackOrderStatusApproved {
		return nil, &apperrors.InvalidTransitionError{From: order.Status, To: model.PackOrderStatusProcessing}
	}
	if order.Status != model.PackOrderStatusPending && order.Status != model.PackOrderStatusApproved {
		return nil, &apperrors.InvalidTransitionError{From: order.Status, To: model.PackOrderStatusProcessing}
	}

	items, err := s.packs.GetPackItems(ctx, order.PackID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.BadRequest("pack has no items")
	}

	dispensaryID, err := s.targetDispensary(ctx, order, userID)
	if err != nil {
		return nil, err
	}
	activeStore, err := s.pharmacy.GetActiveStoreByDispensary(ctx, dispensaryID)
	if err != nil {
		return nil, err
	}

	rxType := model.PrescriptionTypeOutpatient
	if order.InpatientLinked() {
		rxType = model.PrescriptionTypeInpatient
	}
	prescription := &model.Prescription{
		PatientID:    order.PatientID,
		DoctorID:     order.OrderedBy,
		Type:         rxType,
		Status:       model.PrescriptionStatusApproved,
		Notes:        fmt.Sprintf("Auto-created for pack order %s (%s)", order.ID, pack.Name),
		PrescribedAt: s.now(),
	}

	// The cascade transfers, the prescription and the order update all
	// commit or roll back together.
	var shortfalls []string
	var cascaded []*model.Transfer
	now := s.now()
	err = s.inv.WithTx(ctx, func(tx *sqlx.Tx) error {
		var rxItems []*model.PrescriptionItem
		for _, item := range items {
			moved, err := s.topUpDispensary(ctx, tx, item, activeStore, dispensaryID, userID)
			cascaded = append(cascaded, moved...)
			if err != nil {
				var stockErr *apperrors.InsufficientStockError
				if apperrors.As(err, &stockErr) {
					shortfalls = append(shortfalls, "short:"+stockErr.Medication)
					if s.metrics != nil {
						s.metrics.StockShortfalls.Inc()
					}
					s.logger.Warn().
						Str("order_id", order.ID.String()).
						Str("medication", stockErr.Medication).
						Int("required", stockErr.Required).
						Int("available", stockErr.Available).
						Msg("pack item short, continuing")
					continue
				}
				return err
			}
			instructions := item.UsageInstructions
			if instructions == "" {
				instructions = defaultInstructions
			}
			rxItems = append(rxItems, &model.PrescriptionItem{
				MedicationID: item.MedicationID,
				Quantity:     item.Quantity,
				Instructions: instructions,
			})
		}

		if err := s.rx.Create(ctx, tx, prescription, rxItems); err != nil {
			return err
		}
		order.Status = model.PackOrderStatusReady
		order.DispensaryID = dispensaryID
		order.ProcessedBy = &userID
		order.ProcessedAt = &now
		order.PrescriptionID = &prescription.ID
		if len(shortfalls) > 0 {
			order.Notes = strings.TrimSpace(order.Notes + " " + strings.Join(shortfalls, " "))
		}
		return s.packs.UpdateOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	for _, t := range cascaded {
		s.transfers.PublishEvent(ctx, t, userID)
	}
	if s.metrics != nil {
		s.metrics.PackOrdersTotal.WithLabelValues(order.Status).Inc()
	}
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("prescription_id", prescription.ID.String()).
		Int("shortfalls", len(shortfalls)).
		Msg("pack order processed")
	return order, nil
}

// topUpDispensary ensures the dispensary can cover one pack item,
// cascading bulk to active and active to dispensary transfers for any
// shortfall. Transfers are system-initiated with the operator as
// executor.
func (s *Service) topUpDispensary(ctx context.Context, tx *sqlx.Tx, item *model.PackItem, activeStore *model.ActiveStore, dispensaryID, userID uuid.UUID) ([]*model.Transfer, error) {
	dispensaryStock, err := s.inv.GetStockLevel(ctx, tx, model.TierDispensary, dispensaryID, item.MedicationID)
	if err != nil {
		return nil, err
	}
	if dispensaryStock >= item.Quantity {
		return nil, nil
	}
	needed := item.Quantity - dispensaryStock

	activeStock, err := s.inv.GetStockLevel(ctx, tx, model.TierActiveStore, activeStore.ID, item.MedicationID)
	if err != nil {
		return nil, err
	}
	var moved []*model.Transfer
	if activeStock < needed {
		bulkStore, err := s.defaultBulkStore(ctx)
		if err != nil {
			return nil, err
		}
		t, err := s.runSystemTransfer(ctx, tx, model.TransferBulkToActive, bulkStore.ID, activeStore.ID, item.MedicationID, needed-activeStock, userID)
		if err != nil {
			return moved, err
		}
		moved = append(moved, t)
	}
	t, err := s.runSystemTransfer(ctx, tx, model.TransferActiveToDisp, activeStore.ID, dispensaryID, item.MedicationID, needed, userID)
	if err != nil {
		return moved, err
	}
	return append(moved, t), nil
}

func (s *Service) runSystemTransfer(ctx context.Context, tx *sqlx.Tx, kind model.TransferKind, fromID, toID, medicationID uuid.UUID, quantity int, userID uuid.UUID) (*model.Transfer, error) {
	return s.transfers.RunSystem(ctx, tx, &transfer.CreateRequest{
		Kind:            kind,
		MedicationID:    medicationID,
		FromID:          fromID,
		ToID:            toID,
		Quantity:        quantity,
		RequestedBy:     userID,
		Notes:           "pack order cascade",
		SystemInitiated: true,
	}, userID)
}

// targetDispensary resolves where the pack will be dispensed: the
// order's own dispensary if set, else the operator's active pharmacist
// assignment.
func (s *Service) targetDispensary(ctx context.Context, order *model.PackOrder, userID uuid.UUID) (uuid.UUID, error) {
	if order.DispensaryID != uuid.Nil {
		return order.DispensaryID, nil
	}
	assignments, err := s.assignments.ListForUser(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	for _, a := range assignments {
		if a.IsActive {
			return a.DispensaryID, nil
		}
	}
	return uuid.Nil, apperrors.BadRequest("no target dispensary: order has none and user has no active assignment")
}

// defaultBulkStore picks the cascade source when the active store runs
// short. The first bulk store is the hospital's main store.
func (s *Service) defaultBulkStore(ctx context.Context) (*model.BulkStore, error) {
	stores, err := s.pharmacy.ListBulkStores(ctx)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, apperrors.NotFound("no bulk store configured")
	}
	return stores[0], nil
}

// DispenseOrder hands a ready order to the patient: dispensary stock
// is consumed per prescription item, each draw is written to the
// dispensing log, and the prescription and order both move to
// dispensed.
func (s *Service) DispenseOrder(ctx context.Context, orderID, userID uuid.UUID) (*model.PackOrder, error) {
	order, err := s.packs.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != model.PackOrderStatusReady {
		return nil, &apperrors.InvalidTransitionError{From: order.Status, To: model.PackOrderStatusDispensed}
	}

	now := s.now()
	err = s.inv.WithTx(ctx, func(tx *sqlx.Tx) error {
		if order.PrescriptionID != nil {
			if err := s.dispensePrescription(ctx, tx, order, userID, now); err != nil {
				return err
			}
		}
		order.Status = model.PackOrderStatusDispensed
		order.DispensedBy = &userID
		order.DispensedAt = &now
		return s.packs.UpdateOrder(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PackOrdersTotal.WithLabelValues(order.Status).Inc()
	}
	return order, nil
}

func (s *Service) dispensePrescription(ctx context.Context, tx *sqlx.Tx, order *model.PackOrder, userID uuid.UUID, now time.Time) error {
	items, err := s.rx.GetItems(ctx, *order.PrescriptionID)
	if err != nil {
		return err
	}
	for _, item := range items {
		remaining := item.Remaining()
		if remaining <= 0 {
			continue
		}
		consumed, err := s.stock.ConsumeDispensary(ctx, tx, order.DispensaryID, item.MedicationID, remaining)
		if err != nil {
			return err
		}
		med, err := s.pharmacy.GetMedication(ctx, item.MedicationID)
		if err != nil {
			return err
		}
		for _, c := range consumed {
			log := &model.DispensingLog{
				DispensaryID: order.DispensaryID,
				MedicationID: item.MedicationID,
				BatchNumber:  c.BatchNumber,
				Quantity:     c.Quantity,
				UnitPrice:    med.Price,
				DispensedBy:  userID,
				DispensedAt:  now,
			}
			if err := s.rx.RecordDispense(ctx, tx, item.ID, c.Quantity, log); err != nil {
				return err
			}
		}
	}
	return s.rx.UpdateStatus(ctx, tx, *order.PrescriptionID, model.PrescriptionStatusDispensed)
}

// CancelOrder aborts an order from any non-terminal state.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) (*model.PackOrder, error) {
	order, err := s.packs.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case model.PackOrderStatusDispensed, model.PackOrderStatusCancelled:
		return nil, &apperrors.InvalidTransitionError{From: order.Status, To: model.PackOrderStatusCancelled}
	}
	order.Status = model.PackOrderStatusCancelled
	if reason != "" {
		order.Notes = reason
	}
	if err := s.packs.UpdateOrder(ctx, nil, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns orders filtered by status and dispensary.
func (s *Service) ListOrders(ctx context.Context, status string, dispensaryID uuid.UUID) ([]*model.PackOrder, error) {
	return s.packs.ListOrders(ctx, status, dispensaryID)
}

// GetPackWithItems returns a pack and its items.
func (s *Service) GetPackWithItems(ctx context.Context, packID uuid.UUID) (*model.PackWithItems, error) {
	pack, err := s.packs.GetPack(ctx, packID)
	if err != nil {
		return nil, err
	}
	items, err := s.packs.GetPackItems(ctx, packID)
	if err != nil {
		return nil, err
	}
	out := &model.PackWithItems{MedicalPack: *pack}
	for _, item := range items {
		out.Items = append(out.Items, *item)
	}
	return out, nil
}

// CreatePack registers a pack definition with its item list.
func (s *Service) CreatePack(ctx context.Context, pack *model.MedicalPack, items []*model.PackItem) error {
	if pack.Name == "" {
		return apperrors.BadRequest("pack name is required")
	}
	if len(items) == 0 {
		return apperrors.BadRequest("pack must have at least one item")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return apperrors.BadRequest("pack item quantity must be positive")
		}
	}
	return s.packs.CreatePack(ctx, pack, items)
}

// ListPacks returns pack definitions, optionally filtered by type.
func (s *Service) ListPacks(ctx context.Context, packType string) ([]*model.MedicalPack, error) {
	return s.packs.ListPacks(ctx, packType)
}
