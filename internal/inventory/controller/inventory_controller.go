package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/inventory/service"
	"comanda/internal/response"
)

type StockAdjuster interface {
	AdjustStock(ctx context.Context, adj service.Adjustment) (*domain.LedgerEntry, error)
}

type IngredientService interface {
	History(ctx context.Context, ingredientID int64, limit int) ([]domain.LedgerEntry, error)
	GetIngredient(ctx context.Context, ingredientID int64) (*domain.Ingredient, error)
	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
	CreateIngredient(ctx context.Context, in service.NewIngredient) (*domain.Ingredient, error)
}

type InventoryController struct {
	adjuster    StockAdjuster
	ingredients IngredientService
	logger      *zap.Logger
}

func NewInventoryController(adjuster StockAdjuster, ingredients IngredientService, logger *zap.Logger) *InventoryController {
	return &InventoryController{
		adjuster:    adjuster,
		ingredients: ingredients,
		logger:      logger,
	}
}

func (c *InventoryController) RegisterRoutes(r chi.Router) {
	r.Get("/", c.ListIngredients)
	r.Post("/", c.CreateIngredient)
	r.Get("/{ingredientId}", c.GetIngredient)
	r.Post("/{ingredientId}/adjustments", c.AdjustStock)
	r.Get("/{ingredientId}/history", c.History)
}

func (c *InventoryController) AdjustStock(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	ingredientID, ok := c.ingredientID(w, r, traceID, logger)
	if !ok {
		return
	}

	var req dto.AdjustStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		response.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	var details []apperrors.ValidationDetail
	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		details = append(details, apperrors.ValidationDetail{Field: "quantity", Message: "quantity must be a decimal number"})
	} else if quantity.IsZero() {
		details = append(details, apperrors.ValidationDetail{Field: "quantity", Message: "quantity must not be zero"})
	}
	operation := domain.StockOperation(req.Operation)
	if !operation.Valid() {
		details = append(details, apperrors.ValidationDetail{Field: "operation", Message: "unknown operation " + req.Operation})
	}
	if len(details) > 0 {
		response.WriteValidationError(w, traceID, "validation failed", logger, details...)
		return
	}

	entry, err := c.adjuster.AdjustStock(r.Context(), service.Adjustment{
		IngredientID: ingredientID,
		Quantity:     quantity,
		Operation:    operation,
		Actor:        req.Actor,
		Reason:       req.Reason,
	})
	if err != nil {
		response.WriteError(w, traceID, err, logger.With(zap.Int64("ingredientId", ingredientID)))
		return
	}

	response.WriteJSON(w, http.StatusOK, dto.AdjustStockResponse{
		TraceID: traceID,
		Entry:   dto.NewLedgerEntryResponse(*entry),
	}, logger)
}

func (c *InventoryController) History(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	ingredientID, ok := c.ingredientID(w, r, traceID, logger)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.WriteValidationError(w, traceID, "invalid limit", logger, apperrors.ValidationDetail{
				Field:   "limit",
				Message: "limit must be a non-negative integer",
			})
			return
		}
		limit = n
	}

	entries, err := c.ingredients.History(r.Context(), ingredientID, limit)
	if err != nil {
		response.WriteError(w, traceID, err, logger)
		return
	}

	resp := dto.HistoryResponse{
		IngredientID: ingredientID,
		Entries:      make([]dto.LedgerEntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, dto.NewLedgerEntryResponse(e))
	}

	response.WriteJSON(w, http.StatusOK, resp, logger)
}

func (c *InventoryController) GetIngredient(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	ingredientID, ok := c.ingredientID(w, r, traceID, logger)
	if !ok {
		return
	}

	ingredient, err := c.ingredients.GetIngredient(r.Context(), ingredientID)
	if err != nil {
		response.WriteError(w, traceID, err, logger)
		return
	}

	response.WriteJSON(w, http.StatusOK, dto.NewIngredientResponse(*ingredient), logger)
}

func (c *InventoryController) ListIngredients(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	ingredients, err := c.ingredients.ListIngredients(r.Context())
	if err != nil {
		response.WriteError(w, traceID, err, logger)
		return
	}

	resp := make([]dto.IngredientResponse, 0, len(ingredients))
	for _, i := range ingredients {
		resp = append(resp, dto.NewIngredientResponse(i))
	}

	response.WriteJSON(w, http.StatusOK, resp, logger)
}

func (c *InventoryController) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateIngredientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	in := service.NewIngredient{Name: req.Name, Unit: req.Unit, Actor: req.Actor}
	var details []apperrors.ValidationDetail
	for _, f := range []struct {
		field string
		raw   string
		dst   *decimal.Decimal
	}{
		{"initialStock", req.InitialStock, &in.InitialStock},
		{"minimumStock", req.MinimumStock, &in.MinimumStock},
		{"maximumStock", req.MaximumStock, &in.MaximumStock},
		{"unitCost", req.UnitCost, &in.UnitCost},
	} {
		if f.raw == "" {
			continue
		}
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			details = append(details, apperrors.ValidationDetail{Field: f.field, Message: f.field + " must be a decimal number"})
			continue
		}
		*f.dst = v
	}
	if len(details) > 0 {
		response.WriteValidationError(w, traceID, "validation failed", logger, details...)
		return
	}
	if in.Actor == "" {
		in.Actor = "api"
	}

	ingredient, err := c.ingredients.CreateIngredient(r.Context(), in)
	if err != nil {
		response.WriteError(w, traceID, err, logger)
		return
	}

	response.WriteJSON(w, http.StatusCreated, dto.NewIngredientResponse(*ingredient), logger)
}

func (c *InventoryController) ingredientID(w http.ResponseWriter, r *http.Request, traceID string, logger *zap.Logger) (int64, bool) {
	raw := chi.URLParam(r, "ingredientId")
	id, ok := response.ParseID(raw)
	if !ok {
		logger.Warn("invalid ingredientId in path", zap.String("ingredientId", raw))
		response.WriteValidationError(w, traceID, "invalid ingredientId", logger, apperrors.ValidationDetail{
			Field:   "ingredientId",
			Message: "ingredientId must be a positive integer",
		})
	}
	return id, ok
}
