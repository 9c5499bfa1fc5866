package transfer

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/medhq/hms-core/internal/model"
	"github.com/medhq/hms-core/internal/repository"
	"github.com/medhq/hms-core/internal/service/inventory"
	apperrors "github.com/medhq/hms-core/pkg/errors"
	"github.com/medhq/hms-core/pkg/messaging"
	"github.com/medhq/hms-core/pkg/metrics"
)

// Service drives the transfer state machine across the three tier
// pairs. Stock only moves at execution time; creating or approving a
// transfer never touches inventory.
type Service struct {
	transfers repository.TransferRepository
	inv       repository.InventoryRepository
	stock     *inventory.Service
	pharmacy  repository.PharmacyRepository
	broker    messaging.Broker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(
	transfers repository.TransferRepository,
	inv repository.InventoryRepository,
	stock *inventory.Service,
	pharmacy repository.PharmacyRepository,
	broker messaging.Broker,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		transfers: transfers,
		inv:       inv,
		stock:     stock,
		pharmacy:  pharmacy,
		broker:    broker,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateRequest carries the inputs for a new transfer.
type CreateRequest struct {
	Kind            model.TransferKind
	MedicationID    uuid.UUID
	FromID          uuid.UUID
	ToID            uuid.UUID
	Quantity        int
	BatchNumber     *string
	RequestedBy     uuid.UUID
	Notes           string
	SystemInitiated bool
}

// Create validates the request and books a pending transfer. Stock at
// the source is checked as a courtesy; it is re-checked at execution.
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*model.Transfer, error) {
	t, err := s.prepare(ctx, nil, req)
	if err != nil {
		return nil, err
	}
	if err := s.transfers.Create(ctx, nil, t); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TransfersCreated.WithLabelValues(string(req.Kind)).Inc()
	}
	s.logger.Info().
		Str("transfer_id", t.ID.String()).
		Str("kind", string(t.Kind)).
		Int("quantity", t.Quantity).
		Msg("transfer created")
	return t, nil
}

// prepare validates a request and builds the pending transfer row. The
// stock check reads through tx when one is given, so cascaded creates
// see stock booked earlier in the same transaction.
func (s *Service) prepare(ctx context.Context, tx *sqlx.Tx, req *CreateRequest) (*model.Transfer, error) {
	if req.Quantity <= 0 {
		return nil, apperrors.BadRequest("quantity must be positive")
	}
	if req.Kind == model.TransferInterDispensary && req.FromID == req.ToID {
		return nil, &apperrors.SameLocationError{Location: req.FromID.String()}
	}
	med, err := s.pharmacy.GetMedication(ctx, req.MedicationID)
	if err != nil {
		return nil, err
	}

	sourceTier := sourceTierFor(req.Kind)
	available, err := s.inv.GetStockLevel(ctx, tx, sourceTier, req.FromID, req.MedicationID)
	if err != nil {
		return nil, err
	}
	if available < req.Quantity {
		return nil, &apperrors.InsufficientStockError{
			Medication: med.Name,
			Available:  available,
			Required:   req.Quantity,
		}
	}

	return &model.Transfer{
		Kind:            req.Kind,
		MedicationID:    req.MedicationID,
		FromID:          req.FromID,
		ToID:            req.ToID,
		Quantity:        req.Quantity,
		BatchNumber:     req.BatchNumber,
		Status:          model.TransferStatusPending,
		RequestedBy:     req.RequestedBy,
		Notes:           req.Notes,
		SystemInitiated: req.SystemInitiated,
	}, nil
}

// Get returns one transfer.
func (s *Service) Get(ctx context.Context, kind model.TransferKind, id uuid.UUID) (*model.Transfer, error) {
	return s.transfers.Get(ctx, kind, id)
}

// List returns transfers matching the filter.
func (s *Service) List(ctx context.Context, filter *model.TransferFilter) ([]*model.Transfer, error) {
	return s.transfers.List(ctx, filter)
}

// Stats aggregates status counts for one kind.
func (s *Service) Stats(ctx context.Context, kind model.TransferKind) (*model.TransferStats, error) {
	return s.transfers.Stats(ctx, kind)
}

// Approve moves a pending transfer to in_transit.
func (s *Service) Approve(ctx context.Context, kind model.TransferKind, id, approverID uuid.UUID) (*model.Transfer, error) {
	t, err := s.transfers.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !t.CanTransition(model.TransferStatusInTransit) {
		return nil, &apperrors.InvalidTransitionError{From: t.Status, To: model.TransferStatusInTransit}
	}
	now := s.now()
	t.Status = model.TransferStatusInTransit
	t.ApprovedBy = &approverID
	t.ApprovedAt = &now
	if err := s.transfers.UpdateStatus(ctx, nil, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Execute completes an in_transit transfer: stock is drawn from the
// source in first-expiry-first order and booked at the destination,
// all in one transaction.
func (s *Service) Execute(ctx context.Context, kind model.TransferKind, id, executorID uuid.UUID) (*model.Transfer, error) {
	t, err := s.transfers.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !t.CanTransition(model.TransferStatusCompleted) {
		return nil, &apperrors.InvalidTransitionError{From: t.Status, To: model.TransferStatusCompleted}
	}

	err = s.inv.WithTx(ctx, func(tx *sqlx.Tx) error {
		return s.executeInTx(ctx, tx, t, executorID)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TransfersExecuted.WithLabelValues(string(t.Kind), t.Status).Inc()
	}
	s.PublishEvent(ctx, t, executorID)
	s.logger.Info().
		Str("transfer_id", t.ID.String()).
		Str("kind", string(t.Kind)).
		Msg("transfer executed")
	return t, nil
}

// executeInTx moves the stock and completes the transfer inside the
// given transaction.
func (s *Service) executeInTx(ctx context.Context, tx *sqlx.Tx, t *model.Transfer, executorID uuid.UUID) error {
	if err := s.moveStock(ctx, tx, t); err != nil {
		return err
	}
	now := s.now()
	t.Status = model.TransferStatusCompleted
	t.ExecutedBy = &executorID
	t.CompletedAt = &now
	return s.transfers.UpdateStatus(ctx, tx, t)
}

// RunSystem books, approves and executes a system-initiated transfer
// inside the caller's transaction. Nothing is visible until that
// transaction commits; the caller publishes the event afterwards with
// PublishEvent.
func (s *Service) RunSystem(ctx context.Context, tx *sqlx.Tx, req *CreateRequest, actorID uuid.UUID) (*model.Transfer, error) {
	t, err := s.prepare(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	if err := s.transfers.Create(ctx, tx, t); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TransfersCreated.WithLabelValues(string(req.Kind)).Inc()
	}

	now := s.now()
	t.Status = model.TransferStatusInTransit
	t.ApprovedBy = &actorID
	t.ApprovedAt = &now
	if err := s.transfers.UpdateStatus(ctx, tx, t); err != nil {
		return nil, err
	}
	if err := s.executeInTx(ctx, tx, t, actorID); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.TransfersExecuted.WithLabelValues(string(t.Kind), t.Status).Inc()
	}
	return t, nil
}

// moveStock performs the tier-specific draw and deposit.
func (s *Service) moveStock(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) error {
	switch t.Kind {
	case model.TransferBulkToActive:
		lots, err := s.consumeBulkDetailed(ctx, tx, t)
		if err != nil {
			return err
		}
		for _, lot := range lots {
			if err := s.stock.AddActiveLot(ctx, tx, &model.ActiveStoreInventory{
				ActiveStoreID: t.ToID,
				MedicationID:  t.MedicationID,
				BatchNumber:   lot.BatchNumber,
				Quantity:      lot.Quantity,
				ExpiryDate:    lot.ExpiryDate,
				UnitCost:      lot.UnitCost,
			}); err != nil {
				return err
			}
		}
	case model.TransferActiveToDisp:
		lots, err := s.consumeActiveDetailed(ctx, tx, t)
		if err != nil {
			return err
		}
		for _, lot := range lots {
			expiry := lot.ExpiryDate
			if err := s.stock.AddDispensaryLot(ctx, tx, &model.MedicationInventory{
				DispensaryID: t.ToID,
				MedicationID: t.MedicationID,
				BatchNumber:  lot.BatchNumber,
				Quantity:     lot.Quantity,
				ExpiryDate:   &expiry,
				UnitCost:     lot.UnitCost,
			}); err != nil {
				return err
			}
		}
	case model.TransferInterDispensary:
		lots, err := s.consumeDispensaryDetailed(ctx, tx, t)
		if err != nil {
			return err
		}
		for _, lot := range lots {
			if err := s.stock.AddDispensaryLot(ctx, tx, &model.MedicationInventory{
				DispensaryID: t.ToID,
				MedicationID: t.MedicationID,
				BatchNumber:  lot.BatchNumber,
				Quantity:     lot.Quantity,
				ExpiryDate:   lot.ExpiryDate,
				UnitCost:     lot.UnitCost,
				LegacyStock:  lot.LegacyStock,
			}); err != nil {
				return err
			}
		}
	default:
		return apperrors.BadRequest("unknown transfer kind")
	}
	return nil
}

func (s *Service) consumeBulkDetailed(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) ([]*model.BulkStoreInventory, error) {
	lots, err := s.inv.GetBulkLots(ctx, tx, t.FromID, t.MedicationID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.BulkStoreInventory, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}
	plan, err := s.stock.ConsumeBulk(ctx, tx, t.FromID, t.MedicationID, t.Quantity)
	if err != nil {
		return nil, err
	}
	out := make([]*model.BulkStoreInventory, 0, len(plan))
	for _, c := range plan {
		src := byID[c.LotID]
		out = append(out, &model.BulkStoreInventory{
			BatchNumber: src.BatchNumber,
			Quantity:    c.Quantity,
			ExpiryDate:  src.ExpiryDate,
			UnitCost:    src.UnitCost,
		})
	}
	return out, nil
}

func (s *Service) consumeActiveDetailed(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) ([]*model.ActiveStoreInventory, error) {
	lots, err := s.inv.GetActiveLots(ctx, tx, t.FromID, t.MedicationID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.ActiveStoreInventory, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}
	plan, err := s.stock.ConsumeActive(ctx, tx, t.FromID, t.MedicationID, t.Quantity)
	if err != nil {
		return nil, err
	}
	out := make([]*model.ActiveStoreInventory, 0, len(plan))
	for _, c := range plan {
		src := byID[c.LotID]
		out = append(out, &model.ActiveStoreInventory{
			BatchNumber: src.BatchNumber,
			Quantity:    c.Quantity,
			ExpiryDate:  src.ExpiryDate,
			UnitCost:    src.UnitCost,
		})
	}
	return out, nil
}

func (s *Service) consumeDispensaryDetailed(ctx context.Context, tx *sqlx.Tx, t *model.Transfer) ([]*model.MedicationInventory, error) {
	lots, err := s.inv.GetDispensaryLots(ctx, tx, t.FromID, t.MedicationID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.MedicationInventory, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}
	plan, err := s.stock.ConsumeDispensary(ctx, tx, t.FromID, t.MedicationID, t.Quantity)
	if err != nil {
		return nil, err
	}
	out := make([]*model.MedicationInventory, 0, len(plan))
	for _, c := range plan {
		src := byID[c.LotID]
		out = append(out, &model.MedicationInventory{
			BatchNumber: src.BatchNumber,
			Quantity:    c.Quantity,
			ExpiryDate:  src.ExpiryDate,
			UnitCost:    src.UnitCost,
			LegacyStock: src.LegacyStock,
		})
	}
	return out, nil
}

// Cancel aborts a pending or in_transit transfer. No stock has moved
// yet in either state, so nothing is restored. An in_transit transfer
// may only be cancelled by its approver; admin overrides that.
func (s *Service) Cancel(ctx context.Context, kind model.TransferKind, id, actorID uuid.UUID, admin bool, reason string) (*model.Transfer, error) {
	t, err := s.transfers.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !t.CanTransition(model.TransferStatusCancelled) {
		return nil, &apperrors.InvalidTransitionError{From: t.Status, To: model.TransferStatusCancelled}
	}
	if t.Status == model.TransferStatusInTransit && !admin {
		if t.ApprovedBy == nil || *t.ApprovedBy != actorID {
			return nil, &apperrors.PermissionDeniedError{
				Permission: "pharmacy.edit",
				Reason:     "in-transit transfers may only be cancelled by the approver or an admin",
			}
		}
	}
	t.Status = model.TransferStatusCancelled
	if reason != "" {
		t.Notes = reason
	}
	if err := s.transfers.UpdateStatus(ctx, nil, t); err != nil {
		return nil, err
	}
	s.PublishEvent(ctx, t, actorID)
	return t, nil
}

// Reject declines a pending transfer.
func (s *Service) Reject(ctx context.Context, kind model.TransferKind, id, actorID uuid.UUID, reason string) (*model.Transfer, error) {
	t, err := s.transfers.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !t.CanTransition(model.TransferStatusRejected) {
		return nil, &apperrors.InvalidTransitionError{From: t.Status, To: model.TransferStatusRejected}
	}
	t.Status = model.TransferStatusRejected
	if reason != "" {
		t.Notes = reason
	}
	if err := s.transfers.UpdateStatus(ctx, nil, t); err != nil {
		return nil, err
	}
	s.PublishEvent(ctx, t, actorID)
	return t, nil
}

// DeliverInTransit executes every in_transit transfer of one kind.
// Failures are logged and skipped so one bad transfer does not block
// the batch.
func (s *Service) DeliverInTransit(ctx context.Context, kind model.TransferKind, executorID uuid.UUID) (int, error) {
	pending, err := s.transfers.ListByStatus(ctx, kind, model.TransferStatusInTransit)
	if err != nil {
		return 0, err
	}
	delivered := 0
	for _, t := range pending {
		if _, err := s.Execute(ctx, kind, t.ID, executorID); err != nil {
			s.logger.Error().Err(err).
				Str("transfer_id", t.ID.String()).
				Msg("failed to deliver in-transit transfer")
			continue
		}
		delivered++
	}
	return delivered, nil
}

// PublishEvent announces a transfer state change on the event channel.
func (s *Service) PublishEvent(ctx context.Context, t *model.Transfer, actorID uuid.UUID) {
	if s.broker == nil {
		return
	}
	event := messaging.TransferEvent{
		TransferID: t.ID.String(),
		Kind:       string(t.Kind),
		Status:     t.Status,
		Medication: t.MedicationID.String(),
		Quantity:   t.Quantity,
		ActorID:    actorID.String(),
	}
	if err := s.broker.Publish(ctx, messaging.ChannelTransferEvents, event); err != nil {
		s.logger.Error().Err(err).
			Str("transfer_id", t.ID.String()).
			Msg("failed to publish transfer event")
	}
}

func sourceTierFor(kind model.TransferKind) string {
	switch kind {
	case model.TransferBulkToActive:
		return model.TierBulkStore
	case model.TransferActiveToDisp:
		return model.TierActiveStore
	default:
		return model.TierDispensary
	}
}
