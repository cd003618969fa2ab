package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func WriteValidationError(w http.ResponseWriter, traceID, message string, logger *zap.Logger, details ...apperrors.ValidationDetail) {
	WriteJSON(w, http.StatusBadRequest, dto.ErrorResponse{
		TraceID:   traceID,
		Status:    http.StatusBadRequest,
		Code:      "VALIDATION_ERROR",
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}, logger)
}

// StatusClientClosedRequest reports a request the caller gave up on before
// the server finished it.
const StatusClientClosedRequest = 499

// WriteError maps a service error onto its HTTP status. Anything not
// recognized is logged and reported as a 500 without its message.
func WriteError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	resp := dto.ErrorResponse{
		TraceID:   traceID,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
	}

	if ve, ok := apperrors.IsValidationError(err); ok {
		resp.Status, resp.Code = http.StatusBadRequest, "VALIDATION_ERROR"
		resp.Message = ve.Message
		resp.Details = ve.Details
	} else if _, ok := apperrors.IsNotFoundError(err); ok {
		resp.Status, resp.Code = http.StatusNotFound, "NOT_FOUND"
	} else if _, ok := apperrors.IsInvalidTransitionError(err); ok {
		resp.Status, resp.Code = http.StatusConflict, "INVALID_TRANSITION"
	} else if ise, ok := apperrors.IsInsufficientStockError(err); ok {
		resp.Status, resp.Code = http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK"
		resp.Stock = &dto.InsufficientStockDetails{
			IngredientID:   ise.IngredientID,
			IngredientName: ise.IngredientName,
			Available:      ise.Available.String(),
			Requested:      ise.Requested.String(),
		}
	} else if _, ok := apperrors.IsConcurrencyConflictError(err); ok {
		resp.Status, resp.Code = http.StatusConflict, "CONCURRENCY_CONFLICT"
		resp.Message = "the request conflicted with a concurrent update, retry later"
	} else if errors.Is(err, context.DeadlineExceeded) {
		resp.Status, resp.Code = http.StatusGatewayTimeout, "TIMEOUT"
		resp.Message = "the request did not finish in time, retry later"
	} else if errors.Is(err, context.Canceled) {
		resp.Status, resp.Code = StatusClientClosedRequest, "REQUEST_CANCELLED"
		resp.Message = "the request was cancelled"
	} else {
		logger.Error("unexpected error", zap.Error(err))
		resp.Status, resp.Code = http.StatusInternalServerError, "INTERNAL_ERROR"
		resp.Message = "an unexpected error occurred"
	}

	if resp.Status != http.StatusInternalServerError {
		logger.Warn("request failed", zap.String("code", resp.Code), zap.Error(err))
	}

	WriteJSON(w, resp.Status, resp, logger)
}

// ParseID reads a positive integer path or query value.
func ParseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
