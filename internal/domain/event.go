package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventOrderConfirmed      EventType = "order.confirmed"
	EventOrderCancelled      EventType = "order.cancelled"
	EventOrderStatusChanged  EventType = "order.status_changed"
	EventStockAdjusted       EventType = "stock.adjusted"
	EventAvailabilityChanged EventType = "product.availability_changed"
)

// Event is published after the transaction that produced it committed.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

func NewEvent(eventType EventType, key string, payload any, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: at.UTC(),
		Payload:    payload,
	}
}

type AvailabilityChange struct {
	ProductID int64 `json:"productId"`
	Available bool  `json:"available"`
}

type OrderStatusChange struct {
	OrderID int64       `json:"orderId"`
	From    OrderStatus `json:"from"`
	To      OrderStatus `json:"to"`
}

type StockChange struct {
	IngredientID int64          `json:"ingredientId"`
	Operation    StockOperation `json:"operation"`
	Quantity     string         `json:"quantity"`
	NewStock     string         `json:"newStock"`
	LowStock     bool           `json:"lowStock"`
}
