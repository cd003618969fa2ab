package service

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"go.uber.org/zap"

	"comanda/internal/config"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/inventory/ledger"
	"comanda/internal/storage"
)

// lifecycleActor is recorded on ledger entries the order lifecycle produces.
const lifecycleActor = "order-lifecycle"

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type OrderRepository interface {
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.OrderStatus, at time.Time) error
}

type OrderItemRepository interface {
	FindByOrderID(ctx context.Context, q storage.Querier, orderID int64) ([]domain.OrderItem, error)
	UpdateStatus(ctx context.Context, tx *sql.Tx, orderID, itemID int64, status domain.ItemStatus) error
	AdvanceItems(ctx context.Context, tx *sql.Tx, orderID int64, from []domain.ItemStatus, status domain.ItemStatus) error
}

type RecipeIndex interface {
	Requirements(ctx context.Context, q storage.Querier, items []domain.OrderItem) ([]domain.Requirement, error)
}

type StockLedger interface {
	ApplyDelta(ctx context.Context, tx *sql.Tx, d ledger.Delta) (*domain.LedgerEntry, error)
}

type HistoryRepository interface {
	ListByOrder(ctx context.Context, q storage.Querier, orderID int64, operation domain.StockOperation) ([]domain.LedgerEntry, error)
}

type AvailabilitySyncer interface {
	SyncOrDefer(ctx context.Context, ingredientIDs []int64) []domain.AvailabilityChange
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// LifecycleService moves orders through their status machine and applies the
// inventory effect of each move in the same transaction as the status write.
type LifecycleService struct {
	db                  TransactionManager
	dialect             storage.Dialect
	orders              OrderRepository
	items               OrderItemRepository
	recipes             RecipeIndex
	ledger              StockLedger
	history             HistoryRepository
	syncer              AvailabilitySyncer
	publisher           EventPublisher
	logger              *zap.Logger
	txTimeout           time.Duration
	partialCancelPolicy string
	now                 func() time.Time
}

func NewLifecycleService(
	db TransactionManager,
	dialect storage.Dialect,
	orders OrderRepository,
	items OrderItemRepository,
	recipes RecipeIndex,
	stockLedger StockLedger,
	history HistoryRepository,
	syncer AvailabilitySyncer,
	publisher EventPublisher,
	logger *zap.Logger,
	txTimeout time.Duration,
	partialCancelPolicy string,
) *LifecycleService {
	return &LifecycleService{
		db:                  db,
		dialect:             dialect,
		orders:              orders,
		items:               items,
		recipes:             recipes,
		ledger:              stockLedger,
		history:             history,
		syncer:              syncer,
		publisher:           publisher,
		logger:              logger,
		txTimeout:           txTimeout,
		partialCancelPolicy: partialCancelPolicy,
		now:                 func() time.Time { return time.Now().UTC() },
	}
}

// ConfirmOrder consumes the order's recipe ingredients and marks it
// confirmed. Confirming an already confirmed order is a no-op.
func (s *LifecycleService) ConfirmOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.AdvanceOrder(ctx, orderID, domain.OrderStatusConfirmed)
}

// CancelOrder restores whatever the order consumed, if food was not served
// yet, and marks it cancelled. Cancelling twice is a no-op.
func (s *LifecycleService) CancelOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	return s.AdvanceOrder(ctx, orderID, domain.OrderStatusCancelled)
}

// AdvanceOrder is the single entry point for status changes; confirmation and
// cancellation carry their stock effect, every other move only writes status.
func (s *LifecycleService) AdvanceOrder(ctx context.Context, orderID int64, to domain.OrderStatus) (*domain.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	logger := s.logger.With(zap.Int64("orderId", orderID), zap.String("target", string(to)))

	tx, err := s.db.BeginTx(txCtx, s.dialect.TxOptions())
	if err != nil {
		logger.Error("failed to begin transaction", zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "beginning order transition", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback()

	order, err := s.orders.FindByIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "locking order", err)
	}

	plan, ok := domain.PlanTransition(order.Status, to)
	if !ok {
		logger.Warn("invalid order transition", zap.String("from", string(order.Status)))
		return nil, apperrors.NewInvalidTransitionError(orderID, string(order.Status), string(to))
	}

	items, err := s.items.FindByOrderID(txCtx, tx, orderID)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "reading order items", err)
	}
	order.Items = items

	if plan.NoOp {
		logger.Debug("order already in target status")
		return order, nil
	}

	var touched []int64
	switch plan.Effect {
	case domain.StockEffectConsume:
		touched, err = s.consume(txCtx, tx, order)
	case domain.StockEffectRestore:
		if s.partialCancelPolicy == config.PartialCancelReject && order.HasServedItems() {
			logger.Warn("cancellation rejected, order has served items")
			return nil, apperrors.NewInvalidTransitionError(orderID, string(order.Status), string(to))
		}
		touched, err = s.restore(txCtx, tx, order)
	}
	if err != nil {
		if _, ok := apperrors.IsInsufficientStockError(err); ok {
			logger.Warn("order transition rolled back", zap.Error(err))
		} else {
			logger.Error("order transition failed", zap.Error(err))
		}
		return nil, storage.WrapConflict(s.dialect, "applying stock effect", err)
	}

	now := s.now()
	if err := s.orders.UpdateStatus(txCtx, tx, orderID, to, now); err != nil {
		logger.Error("failed to update order status", zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "updating order status", err)
	}

	itemStatus, follows := domain.ItemStatusFor(to)
	var carried []domain.ItemStatus
	if follows {
		carried = domain.ItemStatusesBefore(itemStatus)
		if err := s.items.AdvanceItems(txCtx, tx, orderID, carried, itemStatus); err != nil {
			logger.Error("failed to advance order items", zap.Error(err))
			return nil, storage.WrapConflict(s.dialect, "advancing order items", err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "committing order transition", err)
	}

	logger.Info("order transition committed",
		zap.String("from", string(plan.From)),
		zap.String("effect", plan.Effect.String()),
		zap.Int("ingredientsTouched", len(touched)),
	)

	applyTransition(order, to, now, carried, itemStatus)

	if len(touched) > 0 {
		s.syncer.SyncOrDefer(ctx, touched)
	}
	s.publishTransition(ctx, order, plan)

	return order, nil
}

func applyTransition(order *domain.Order, to domain.OrderStatus, at time.Time, carried []domain.ItemStatus, itemStatus domain.ItemStatus) {
	order.Status = to
	order.UpdatedAt = at
	switch to {
	case domain.OrderStatusServed:
		order.ServedAt = &at
	case domain.OrderStatusCompleted:
		order.CompletedAt = &at
	case domain.OrderStatusCancelled:
		order.CancelledAt = &at
	}

	for i := range order.Items {
		for _, s := range carried {
			if order.Items[i].Status == s {
				order.Items[i].Status = itemStatus
				break
			}
		}
	}
}

// consume draws every requirement in ascending ingredient id order. The
// first shortfall aborts the whole transaction.
func (s *LifecycleService) consume(ctx context.Context, tx *sql.Tx, order *domain.Order) ([]int64, error) {
	reqs, err := s.recipes.Requirements(ctx, tx, order.Items)
	if err != nil {
		return nil, err
	}

	orderID := order.ID
	touched := make([]int64, 0, len(reqs))
	for _, req := range reqs {
		_, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
			IngredientID: req.IngredientID,
			Quantity:     req.Quantity.Neg(),
			Operation:    domain.OperationOrderConsumption,
			OrderID:      &orderID,
			Actor:        lifecycleActor,
		})
		if err != nil {
			return nil, err
		}
		touched = append(touched, req.IngredientID)
	}

	return touched, nil
}

// restore reverses each consumption entry recorded for the order. Entries
// come back sorted by ingredient id, keeping the lock order of consume.
func (s *LifecycleService) restore(ctx context.Context, tx *sql.Tx, order *domain.Order) ([]int64, error) {
	entries, err := s.history.ListByOrder(ctx, tx, order.ID, domain.OperationOrderConsumption)
	if err != nil {
		return nil, err
	}

	orderID := order.ID
	reason := "order " + order.OrderNumber + " cancelled"
	touched := make([]int64, 0, len(entries))
	for _, entry := range entries {
		_, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
			IngredientID: entry.IngredientID,
			Quantity:     entry.Quantity.Neg(),
			Operation:    domain.OperationOrderCancellation,
			OrderID:      &orderID,
			Actor:        lifecycleActor,
			Reason:       &reason,
		})
		if err != nil {
			return nil, err
		}
		touched = append(touched, entry.IngredientID)
	}

	return touched, nil
}

// UpdateItemStatus moves a single item forward while the kitchen works on
// the order. It has no stock effect.
func (s *LifecycleService) UpdateItemStatus(ctx context.Context, orderID, itemID int64, to domain.ItemStatus) (*domain.Order, error) {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, s.dialect.TxOptions())
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "beginning item update", err)
	}
	defer tx.Rollback()

	order, err := s.orders.FindByIDForUpdate(txCtx, tx, orderID)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "locking order", err)
	}

	if !order.Status.HasConsumed() || !order.Status.IsPreServed() {
		return nil, apperrors.NewInvalidTransitionError(orderID, string(order.Status), "item:"+string(to))
	}

	items, err := s.items.FindByOrderID(txCtx, tx, orderID)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "reading order items", err)
	}

	idx := -1
	for i, item := range items {
		if item.ID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperrors.NewNotFoundError("item " + strconv.FormatInt(itemID, 10) + " not found on order " + strconv.FormatInt(orderID, 10))
	}
	if items[idx].Status == to {
		order.Items = items
		return order, nil
	}
	if !items[idx].Status.CanAdvanceTo(to) {
		return nil, apperrors.NewInvalidTransitionError(orderID, "item:"+string(items[idx].Status), "item:"+string(to))
	}

	if err := s.items.UpdateStatus(txCtx, tx, orderID, itemID, to); err != nil {
		return nil, storage.WrapConflict(s.dialect, "updating item status", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.WrapConflict(s.dialect, "committing item update", err)
	}

	items[idx].Status = to
	order.Items = items

	s.logger.Info("order item advanced",
		zap.Int64("orderId", orderID),
		zap.Int64("itemId", itemID),
		zap.String("status", string(to)),
	)

	return order, nil
}

func (s *LifecycleService) publishTransition(ctx context.Context, order *domain.Order, plan domain.TransitionPlan) {
	eventType := domain.EventOrderStatusChanged
	switch plan.To {
	case domain.OrderStatusConfirmed:
		eventType = domain.EventOrderConfirmed
	case domain.OrderStatusCancelled:
		eventType = domain.EventOrderCancelled
	}

	payload := domain.OrderStatusChange{OrderID: order.ID, From: plan.From, To: plan.To}
	event := domain.NewEvent(eventType, "order-"+strconv.FormatInt(order.ID, 10), payload, order.UpdatedAt)

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish order event", zap.Int64("orderId", order.ID), zap.Error(err))
	}
}
