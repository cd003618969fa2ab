package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Ingredient struct {
	ID           int64
	Name         string
	Unit         string
	CurrentStock decimal.Decimal
	MinimumStock decimal.Decimal
	MaximumStock decimal.Decimal
	UnitCost     decimal.Decimal
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (i Ingredient) IsLowStock() bool {
	return i.CurrentStock.LessThanOrEqual(i.MinimumStock)
}

func (i Ingredient) InStock() bool {
	return i.CurrentStock.IsPositive()
}
