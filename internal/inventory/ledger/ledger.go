package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

type IngredientRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Ingredient, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Ingredient, error)
	UpdateStock(ctx context.Context, tx *sql.Tx, id int64, stock decimal.Decimal, updatedAt time.Time) error
}

type HistoryRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, entry domain.LedgerEntry) (int64, error)
}

// Delta is one requested stock movement.
type Delta struct {
	IngredientID int64
	Quantity     decimal.Decimal
	Operation    domain.StockOperation
	OrderID      *int64
	Actor        string
	Reason       *string
}

// Ledger is the only code path allowed to change an ingredient's stock.
// Every change is paired with an append-only history row in the same
// transaction.
type Ledger struct {
	ingredients IngredientRepository
	history     HistoryRepository
	logger      *zap.Logger
	now         func() time.Time
}

func New(ingredients IngredientRepository, history HistoryRepository, logger *zap.Logger) *Ledger {
	return &Ledger{
		ingredients: ingredients,
		history:     history,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (l *Ledger) validate(d Delta) error {
	var details []apperrors.ValidationDetail

	if d.IngredientID <= 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "ingredientId",
			Message: "ingredientId must be a positive integer",
		})
	}

	if !d.Operation.Valid() {
		details = append(details, apperrors.ValidationDetail{
			Field:   "operation",
			Message: fmt.Sprintf("unknown operation %q", d.Operation),
		})
	}

	switch {
	case d.Quantity.IsZero():
		details = append(details, apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity must not be zero",
		})
	case !domain.FitsScale(d.Quantity):
		details = append(details, apperrors.ValidationDetail{
			Field:   "quantity",
			Message: fmt.Sprintf("quantity supports at most %d decimal places", domain.QuantityScale),
		})
	case d.Operation.Valid() && !d.Operation.SignAllowed(d.Quantity):
		details = append(details, apperrors.ValidationDetail{
			Field:   "quantity",
			Message: fmt.Sprintf("quantity sign is not allowed for %s", d.Operation),
		})
	}

	if d.Operation.IsOrderDriven() && d.OrderID == nil {
		details = append(details, apperrors.ValidationDetail{
			Field:   "orderId",
			Message: fmt.Sprintf("%s requires an order reference", d.Operation),
		})
	}
	if !d.Operation.IsOrderDriven() && d.OrderID != nil {
		details = append(details, apperrors.ValidationDetail{
			Field:   "orderId",
			Message: fmt.Sprintf("%s must not reference an order", d.Operation),
		})
	}

	if d.Actor == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "actor",
			Message: "actor is required",
		})
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid stock delta", details...)
	}
	return nil
}

// ApplyDelta locks the ingredient row inside tx, applies the signed quantity
// and appends the audit row. It rejects, without writing anything, any delta
// that would leave the stock negative.
func (l *Ledger) ApplyDelta(ctx context.Context, tx *sql.Tx, d Delta) (*domain.LedgerEntry, error) {
	if err := l.validate(d); err != nil {
		return nil, err
	}

	ingredient, err := l.ingredients.FindByIDForUpdate(ctx, tx, d.IngredientID)
	if err != nil {
		return nil, err
	}

	newStock := ingredient.CurrentStock.Add(d.Quantity)
	if newStock.IsNegative() {
		return nil, apperrors.NewInsufficientStockError(ingredient.ID, ingredient.Name, ingredient.CurrentStock, d.Quantity.Neg())
	}

	now := l.now()
	if err := l.ingredients.UpdateStock(ctx, tx, ingredient.ID, newStock, now); err != nil {
		return nil, err
	}

	entry := domain.LedgerEntry{
		IngredientID:  ingredient.ID,
		OrderID:       d.OrderID,
		Operation:     d.Operation,
		Quantity:      d.Quantity,
		PreviousStock: ingredient.CurrentStock,
		NewStock:      newStock,
		Actor:         d.Actor,
		Reason:        d.Reason,
		CreatedAt:     now,
	}

	id, err := l.history.Insert(ctx, tx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id

	ingredient.CurrentStock = newStock
	if ingredient.IsLowStock() {
		l.logger.Warn("ingredient at or below minimum stock",
			zap.Int64("ingredientId", ingredient.ID),
			zap.String("ingredient", ingredient.Name),
			zap.String("stock", newStock.String()),
			zap.String("minimum", ingredient.MinimumStock.String()),
		)
	}

	l.logger.Debug("stock delta applied",
		zap.Int64("ingredientId", ingredient.ID),
		zap.String("operation", string(d.Operation)),
		zap.String("quantity", d.Quantity.String()),
		zap.String("newStock", newStock.String()),
	)

	return &entry, nil
}

// CurrentStock reads the committed stock of an ingredient.
func (l *Ledger) CurrentStock(ctx context.Context, ingredientID int64) (decimal.Decimal, error) {
	ingredient, err := l.ingredients.FindByID(ctx, ingredientID)
	if err != nil {
		return decimal.Zero, err
	}
	return ingredient.CurrentStock, nil
}
