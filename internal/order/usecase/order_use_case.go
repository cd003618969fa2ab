package usecase

import (
	"context"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/order/service"
	"comanda/internal/retry"
)

type OrderLifecycle interface {
	ConfirmOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	AdvanceOrder(ctx context.Context, orderID int64, to domain.OrderStatus) (*domain.Order, error)
	UpdateItemStatus(ctx context.Context, orderID, itemID int64, to domain.ItemStatus) (*domain.Order, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, in service.NewOrder) (*domain.Order, error)
}

// OrderUseCase runs every order command under the conflict retry policy.
// Each attempt is a fresh transaction, so a retried confirmation re-reads
// stock that a competing order may already have drawn.
type OrderUseCase struct {
	lifecycle OrderLifecycle
	creator   OrderCreator
	logger    *zap.Logger
	policy    retry.Policy
}

func NewOrderUseCase(lifecycle OrderLifecycle, creator OrderCreator, logger *zap.Logger, policy retry.Policy) *OrderUseCase {
	return &OrderUseCase{
		lifecycle: lifecycle,
		creator:   creator,
		logger:    logger,
		policy:    policy,
	}
}

func (uc *OrderUseCase) CreateOrder(ctx context.Context, in service.NewOrder) (*domain.Order, error) {
	uc.logger.Info("create order started", zap.String("type", string(in.Type)), zap.Int("itemCount", len(in.Items)))

	return retry.Do(ctx, uc.policy, uc.logger, "create order", func(ctx context.Context) (*domain.Order, error) {
		return uc.creator.CreateOrder(ctx, in)
	})
}

func (uc *OrderUseCase) ConfirmOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	uc.logger.Info("confirm order started", zap.Int64("orderId", orderID))

	return retry.Do(ctx, uc.policy, uc.logger, "confirm order", func(ctx context.Context) (*domain.Order, error) {
		return uc.lifecycle.ConfirmOrder(ctx, orderID)
	})
}

func (uc *OrderUseCase) CancelOrder(ctx context.Context, orderID int64) (*domain.Order, error) {
	uc.logger.Info("cancel order started", zap.Int64("orderId", orderID))

	return retry.Do(ctx, uc.policy, uc.logger, "cancel order", func(ctx context.Context) (*domain.Order, error) {
		return uc.lifecycle.CancelOrder(ctx, orderID)
	})
}

func (uc *OrderUseCase) AdvanceOrder(ctx context.Context, orderID int64, to domain.OrderStatus) (*domain.Order, error) {
	uc.logger.Info("advance order started", zap.Int64("orderId", orderID), zap.String("target", string(to)))

	return retry.Do(ctx, uc.policy, uc.logger, "advance order", func(ctx context.Context) (*domain.Order, error) {
		return uc.lifecycle.AdvanceOrder(ctx, orderID, to)
	})
}

func (uc *OrderUseCase) UpdateItemStatus(ctx context.Context, orderID, itemID int64, to domain.ItemStatus) (*domain.Order, error) {
	return retry.Do(ctx, uc.policy, uc.logger, "update item status", func(ctx context.Context) (*domain.Order, error) {
		return uc.lifecycle.UpdateItemStatus(ctx, orderID, itemID, to)
	})
}
