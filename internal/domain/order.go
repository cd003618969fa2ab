package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeout  OrderType = "takeout"
	OrderTypeDelivery OrderType = "delivery"
)

func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeTakeout, OrderTypeDelivery:
		return true
	}
	return false
}

type Order struct {
	ID          int64
	OrderNumber string
	Type        OrderType
	Status      OrderStatus
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
	TableID     *int64
	CustomerID  *int64
	ServedAt    *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []OrderItem
}

type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusPreparing ItemStatus = "preparing"
	ItemStatusReady     ItemStatus = "ready"
	ItemStatusServed    ItemStatus = "served"
	ItemStatusCancelled ItemStatus = "cancelled"
)

type OrderItem struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Status    ItemStatus
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// HasServedItems reports whether any item already reached the table.
func (o Order) HasServedItems() bool {
	for _, item := range o.Items {
		if item.Status == ItemStatusServed {
			return true
		}
	}
	return false
}

var itemStatusRank = map[ItemStatus]int{
	ItemStatusPending:   0,
	ItemStatusPreparing: 1,
	ItemStatusReady:     2,
	ItemStatusServed:    3,
}

// CanAdvanceTo reports whether an item may move forward to the given status.
// Items only move forward and never leave served or cancelled.
func (s ItemStatus) CanAdvanceTo(to ItemStatus) bool {
	from, ok := itemStatusRank[s]
	if !ok || s == ItemStatusServed {
		return false
	}
	target, ok := itemStatusRank[to]
	return ok && target > from
}

// ItemStatusFor maps an order status to the status its open items follow.
func ItemStatusFor(s OrderStatus) (ItemStatus, bool) {
	switch s {
	case OrderStatusPreparing:
		return ItemStatusPreparing, true
	case OrderStatusReady:
		return ItemStatusReady, true
	case OrderStatusServed, OrderStatusCompleted:
		return ItemStatusServed, true
	case OrderStatusCancelled:
		return ItemStatusCancelled, true
	}
	return "", false
}

// ItemStatusesBefore lists the open item statuses that an order-level move to
// the given item status carries along.
func ItemStatusesBefore(to ItemStatus) []ItemStatus {
	if to == ItemStatusCancelled {
		return []ItemStatus{ItemStatusPending, ItemStatusPreparing, ItemStatusReady}
	}
	rank, ok := itemStatusRank[to]
	if !ok {
		return nil
	}
	var before []ItemStatus
	for _, s := range []ItemStatus{ItemStatusPending, ItemStatusPreparing, ItemStatusReady} {
		if itemStatusRank[s] < rank {
			before = append(before, s)
		}
	}
	return before
}
