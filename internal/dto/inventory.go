package dto

import (
	"time"

	"comanda/internal/domain"
)

// AdjustStockRequest carries quantity as a string so exact decimals survive
// JSON decoding.
type AdjustStockRequest struct {
	Quantity  string  `json:"quantity"`
	Operation string  `json:"operation"`
	Actor     string  `json:"actor"`
	Reason    *string `json:"reason"`
}

type CreateIngredientRequest struct {
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	InitialStock string `json:"initialStock"`
	MinimumStock string `json:"minimumStock"`
	MaximumStock string `json:"maximumStock"`
	UnitCost     string `json:"unitCost"`
	Actor        string `json:"actor"`
}

type LedgerEntryResponse struct {
	ID            int64     `json:"id"`
	IngredientID  int64     `json:"ingredientId"`
	OrderID       *int64    `json:"orderId,omitempty"`
	Operation     string    `json:"operation"`
	Quantity      string    `json:"quantity"`
	PreviousStock string    `json:"previousStock"`
	NewStock      string    `json:"newStock"`
	Actor         string    `json:"actor"`
	Reason        *string   `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

type AdjustStockResponse struct {
	TraceID string              `json:"traceId"`
	Entry   LedgerEntryResponse `json:"entry"`
}

type HistoryResponse struct {
	IngredientID int64                 `json:"ingredientId"`
	Entries      []LedgerEntryResponse `json:"entries"`
}

type IngredientResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentStock string `json:"currentStock"`
	MinimumStock string `json:"minimumStock"`
	MaximumStock string `json:"maximumStock"`
	UnitCost     string `json:"unitCost"`
	IsActive     bool   `json:"isActive"`
	LowStock     bool   `json:"lowStock"`
}

func NewLedgerEntryResponse(e domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:            e.ID,
		IngredientID:  e.IngredientID,
		OrderID:       e.OrderID,
		Operation:     string(e.Operation),
		Quantity:      e.Quantity.String(),
		PreviousStock: e.PreviousStock.String(),
		NewStock:      e.NewStock.String(),
		Actor:         e.Actor,
		Reason:        e.Reason,
		CreatedAt:     e.CreatedAt,
	}
}

func NewIngredientResponse(i domain.Ingredient) IngredientResponse {
	return IngredientResponse{
		ID:           i.ID,
		Name:         i.Name,
		Unit:         i.Unit,
		CurrentStock: i.CurrentStock.String(),
		MinimumStock: i.MinimumStock.String(),
		MaximumStock: i.MaximumStock.String(),
		UnitCost:     i.UnitCost.String(),
		IsActive:     i.IsActive,
		LowStock:     i.IsLowStock(),
	}
}
