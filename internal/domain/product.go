package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	IsActive    bool
	// IsAvailable is derived from recipe stock; only the availability
	// synchronizer writes it.
	IsAvailable bool
	// AvailabilityOverride is an operator decision kept apart from the
	// derived flag. Nil means no override.
	AvailabilityOverride *bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (p Product) EffectiveAvailable() bool {
	if p.AvailabilityOverride != nil {
		return *p.AvailabilityOverride
	}
	return p.IsAvailable
}

// Orderable is what a counter checks before putting the product on an order.
func (p Product) Orderable() bool {
	return p.IsActive && p.EffectiveAvailable()
}
