package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockOperation string

const (
	OperationRestock           StockOperation = "restock"
	OperationOrderConsumption  StockOperation = "order_consumption"
	OperationOrderCancellation StockOperation = "order_cancellation"
	OperationManualAdjustment  StockOperation = "manual_adjustment"
	OperationSpoilage          StockOperation = "spoilage"
)

func (op StockOperation) Valid() bool {
	switch op {
	case OperationRestock, OperationOrderConsumption, OperationOrderCancellation,
		OperationManualAdjustment, OperationSpoilage:
		return true
	}
	return false
}

// IsOrderDriven reports whether the operation may only be produced by the
// order lifecycle and always carries an order reference.
func (op StockOperation) IsOrderDriven() bool {
	return op == OperationOrderConsumption || op == OperationOrderCancellation
}

// LedgerEntry is one immutable row of ingredient_history.
type LedgerEntry struct {
	ID            int64
	IngredientID  int64
	OrderID       *int64
	Operation     StockOperation
	Quantity      decimal.Decimal
	PreviousStock decimal.Decimal
	NewStock      decimal.Decimal
	Actor         string
	Reason        *string
	CreatedAt     time.Time
}

func (e LedgerEntry) Balanced() bool {
	return e.PreviousStock.Add(e.Quantity).Equal(e.NewStock)
}

// ReplayStock folds entries, in creation order, starting from zero.
func ReplayStock(entries []LedgerEntry) decimal.Decimal {
	stock := decimal.Zero
	for _, e := range entries {
		stock = stock.Add(e.Quantity)
	}
	return stock
}

// QuantityScale is the number of fractional digits the store keeps for
// stock quantities.
const QuantityScale = 4

// FitsScale reports whether q can be stored without rounding.
func FitsScale(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(QuantityScale))
}

// SignAllowed reports whether a delta of qty is a legal movement for op.
// Restock and restoration only add, consumption and spoilage only remove.
func (op StockOperation) SignAllowed(qty decimal.Decimal) bool {
	switch op {
	case OperationRestock, OperationOrderCancellation:
		return qty.IsPositive()
	case OperationOrderConsumption, OperationSpoilage:
		return qty.IsNegative()
	case OperationManualAdjustment:
		return !qty.IsZero()
	}
	return false
}
