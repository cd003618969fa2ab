package usecase

import (
	"context"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/inventory/service"
	"comanda/internal/retry"
)

type StockAdjuster interface {
	AdjustStock(ctx context.Context, adj service.Adjustment) (*domain.LedgerEntry, error)
}

type AdjustStockUseCase struct {
	adjuster StockAdjuster
	logger   *zap.Logger
	policy   retry.Policy
}

func NewAdjustStockUseCase(adjuster StockAdjuster, logger *zap.Logger, policy retry.Policy) *AdjustStockUseCase {
	return &AdjustStockUseCase{
		adjuster: adjuster,
		logger:   logger,
		policy:   policy,
	}
}

func (uc *AdjustStockUseCase) AdjustStock(ctx context.Context, adj service.Adjustment) (*domain.LedgerEntry, error) {
	uc.logger.Info("stock adjustment started",
		zap.Int64("ingredientId", adj.IngredientID),
		zap.String("operation", string(adj.Operation)),
		zap.String("quantity", adj.Quantity.String()),
	)

	return retry.Do(ctx, uc.policy, uc.logger, "adjust stock", func(ctx context.Context) (*domain.LedgerEntry, error) {
		return uc.adjuster.AdjustStock(ctx, adj)
	})
}
