package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/response"
)

const maxSearchIDs = 100

type ProductUseCase interface {
	SearchProducts(ctx context.Context, req dto.SearchProductsRequest) (*dto.SearchProductsResponse, error)
	SetAvailabilityOverride(ctx context.Context, productID int64, override *bool) (*dto.ProductDTO, error)
}

type Controller struct {
	useCase ProductUseCase
	logger  *zap.Logger
}

func NewController(useCase ProductUseCase, logger *zap.Logger) *Controller {
	return &Controller{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *Controller) RegisterRoutes(r chi.Router) {
	r.Post("/search", c.SearchProducts)
	r.Put("/{productId}/availability-override", c.SetAvailabilityOverride)
}

func (c *Controller) SearchProducts(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.SearchProductsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if err := validateSearchRequest(req); err != nil {
		ve, _ := apperrors.IsValidationError(err)
		response.WriteValidationError(w, traceID, ve.Message, logger, ve.Details...)
		return
	}

	resp, err := c.useCase.SearchProducts(r.Context(), req)
	if err != nil {
		response.WriteError(w, traceID, err, logger)
		return
	}

	response.WriteJSON(w, http.StatusOK, resp, logger)
}

func (c *Controller) SetAvailabilityOverride(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	productID, ok := response.ParseID(chi.URLParam(r, "productId"))
	if !ok {
		response.WriteValidationError(w, traceID, "invalid productId", logger, apperrors.ValidationDetail{
			Field:   "productId",
			Message: "productId must be a positive integer",
		})
		return
	}

	var req dto.AvailabilityOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	product, err := c.useCase.SetAvailabilityOverride(r.Context(), productID, req.Override)
	if err != nil {
		response.WriteError(w, traceID, err, logger.With(zap.Int64("productId", productID)))
		return
	}

	response.WriteJSON(w, http.StatusOK, product, logger)
}

func validateSearchRequest(req dto.SearchProductsRequest) error {
	if len(req.ProductIDs) == 0 {
		return apperrors.NewValidationError("productIds is required", apperrors.ValidationDetail{
			Field:   "productIds",
			Message: "productIds must not be empty",
		})
	}

	if len(req.ProductIDs) > maxSearchIDs {
		msg := "productIds exceeds maximum of 100"
		return apperrors.NewValidationError(msg, apperrors.ValidationDetail{
			Field:   "productIds",
			Message: msg,
		})
	}

	for _, id := range req.ProductIDs {
		if id <= 0 {
			msg := "each productId must be a positive integer"
			return apperrors.NewValidationError(msg, apperrors.ValidationDetail{
				Field:   "productIds",
				Message: msg,
			})
		}
	}

	return nil
}
