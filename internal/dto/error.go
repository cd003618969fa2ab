package dto

import (
	"time"

	apperrors "comanda/internal/errors"
)

type ErrorResponse struct {
	TraceID   string                       `json:"traceId"`
	Status    int                          `json:"status"`
	Code      string                       `json:"code"`
	Message   string                       `json:"message"`
	Details   []apperrors.ValidationDetail `json:"details,omitempty"`
	Stock     *InsufficientStockDetails    `json:"stock,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}

type InsufficientStockDetails struct {
	IngredientID   int64  `json:"ingredientId"`
	IngredientName string `json:"ingredientName"`
	Available      string `json:"available"`
	Requested      string `json:"requested"`
}
