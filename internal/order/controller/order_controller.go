package controller

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/order/service"
	"comanda/internal/response"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, in service.NewOrder) (*domain.Order, error)
	ConfirmOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID int64) (*domain.Order, error)
	AdvanceOrder(ctx context.Context, orderID int64, to domain.OrderStatus) (*domain.Order, error)
	UpdateItemStatus(ctx context.Context, orderID, itemID int64, to domain.ItemStatus) (*domain.Order, error)
}

type OrderController struct {
	useCase OrderUseCase
	logger  *zap.Logger
}

func NewOrderController(useCase OrderUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *OrderController) RegisterRoutes(r chi.Router) {
	r.Post("/", c.CreateOrder)
	r.Post("/{orderId}/confirm", c.ConfirmOrder)
	r.Post("/{orderId}/cancel", c.CancelOrder)
	r.Post("/{orderId}/status", c.AdvanceOrder)
	r.Post("/{orderId}/items/{itemId}/status", c.UpdateItemStatus)
}

func (c *OrderController) traceLogger() (string, *zap.Logger) {
	traceID := uuid.New().String()
	return traceID, c.logger.With(zap.String("traceId", traceID))
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.traceLogger()

	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		response.WriteValidationError(w, traceID, "invalid JSON body", logger, apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if len(req.Items) > 100 {
		response.WriteValidationError(w, traceID, "validation failed", logger, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items exceeds maximum of 100",
		})
		return
	}

	in := service.NewOrder{
		Type:       domain.OrderType(req.Type),
		TableID:    req.TableID,
		CustomerID: req.CustomerID,
		Items:      make([]service.NewOrderItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		in.Items = append(in.Items, service.NewOrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	order, err := c.useCase.CreateOrder(r.Context(), in)
	if err != nil {
		response.WriteError(w, traceID, err, logger)
		return
	}

	response.WriteJSON(w, http.StatusCreated, dto.NewOrderResponse(traceID, order), logger)
}

func (c *OrderController) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, func(ctx context.Context, orderID int64) (*domain.Order, error) {
		return c.useCase.ConfirmOrder(ctx, orderID)
	})
}

func (c *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	c.transition(w, r, func(ctx context.Context, orderID int64) (*domain.Order, error) {
		return c.useCase.CancelOrder(ctx, orderID)
	})
}

func (c *OrderController) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.traceLogger()

	var req dto.AdvanceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		response.WriteValidationError(w, traceID, "invalid request body", logger, apperrors.ValidationDetail{
			Field:   "status",
			Message: "status is required",
		})
		return
	}

	to, ok := domain.ParseOrderStatus(req.Status)
	if !ok {
		response.WriteValidationError(w, traceID, "invalid status", logger, apperrors.ValidationDetail{
			Field:   "status",
			Message: "unknown order status " + req.Status,
		})
		return
	}

	c.transitionWith(w, r, traceID, logger, func(ctx context.Context, orderID int64) (*domain.Order, error) {
		return c.useCase.AdvanceOrder(ctx, orderID, to)
	})
}

func (c *OrderController) UpdateItemStatus(w http.ResponseWriter, r *http.Request) {
	traceID, logger := c.traceLogger()

	itemID, ok := response.ParseID(chi.URLParam(r, "itemId"))
	if !ok {
		response.WriteValidationError(w, traceID, "invalid itemId", logger, apperrors.ValidationDetail{
			Field:   "itemId",
			Message: "itemId must be a positive integer",
		})
		return
	}

	var req dto.AdvanceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		response.WriteValidationError(w, traceID, "invalid request body", logger, apperrors.ValidationDetail{
			Field:   "status",
			Message: "status is required",
		})
		return
	}

	c.transitionWith(w, r, traceID, logger, func(ctx context.Context, orderID int64) (*domain.Order, error) {
		return c.useCase.UpdateItemStatus(ctx, orderID, itemID, domain.ItemStatus(req.Status))
	})
}

func (c *OrderController) transition(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, orderID int64) (*domain.Order, error)) {
	traceID, logger := c.traceLogger()
	c.transitionWith(w, r, traceID, logger, run)
}

func (c *OrderController) transitionWith(
	w http.ResponseWriter,
	r *http.Request,
	traceID string,
	logger *zap.Logger,
	run func(ctx context.Context, orderID int64) (*domain.Order, error),
) {
	orderID, ok := response.ParseID(chi.URLParam(r, "orderId"))
	if !ok {
		logger.Warn("invalid orderId in path", zap.String("orderId", chi.URLParam(r, "orderId")))
		response.WriteValidationError(w, traceID, "invalid orderId", logger, apperrors.ValidationDetail{
			Field:   "orderId",
			Message: "orderId must be a positive integer",
		})
		return
	}

	order, err := run(r.Context(), orderID)
	if err != nil {
		response.WriteError(w, traceID, err, logger.With(zap.Int64("orderId", orderID)))
		return
	}

	response.WriteJSON(w, http.StatusOK, dto.NewOrderResponse(traceID, order), logger)
}
