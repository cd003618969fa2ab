package dto

import (
	"time"

	"comanda/internal/domain"
)

type CreateOrderRequest struct {
	Type       string            `json:"type"`
	TableID    *int64            `json:"tableId"`
	CustomerID *int64            `json:"customerId"`
	Items      []CreateOrderItem `json:"items"`
}

type CreateOrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

type AdvanceOrderRequest struct {
	Status string `json:"status"`
}

type OrderResponse struct {
	TraceID     string              `json:"traceId"`
	ID          int64               `json:"id"`
	OrderNumber string              `json:"orderNumber"`
	Type        string              `json:"type"`
	Status      string              `json:"status"`
	Subtotal    string              `json:"subtotal"`
	Tax         string              `json:"tax"`
	Total       string              `json:"total"`
	TableID     *int64              `json:"tableId,omitempty"`
	CustomerID  *int64              `json:"customerId,omitempty"`
	Items       []OrderItemResponse `json:"items"`
	ServedAt    *time.Time          `json:"servedAt,omitempty"`
	CompletedAt *time.Time          `json:"completedAt,omitempty"`
	CancelledAt *time.Time          `json:"cancelledAt,omitempty"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

type OrderItemResponse struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"productId"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Status    string `json:"status"`
}

func NewOrderResponse(traceID string, o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Status:    string(item.Status),
		})
	}

	return OrderResponse{
		TraceID:     traceID,
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Type:        string(o.Type),
		Status:      string(o.Status),
		Subtotal:    o.Subtotal.StringFixed(2),
		Tax:         o.Tax.StringFixed(2),
		Total:       o.Total.StringFixed(2),
		TableID:     o.TableID,
		CustomerID:  o.CustomerID,
		Items:       items,
		ServedAt:    o.ServedAt,
		CompletedAt: o.CompletedAt,
		CancelledAt: o.CancelledAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
