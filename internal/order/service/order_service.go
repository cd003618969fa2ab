package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/storage"
)

const maxItemQuantity = 10000

type ProductCatalog interface {
	FindByIDs(ctx context.Context, q storage.Querier, ids []int64) ([]domain.Product, error)
}

type OrderWriter interface {
	Insert(ctx context.Context, tx *sql.Tx, order domain.Order) (int64, error)
}

type OrderItemWriter interface {
	Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error)
}

type NewOrderItem struct {
	ProductID int64
	Quantity  int
}

type NewOrder struct {
	Type       domain.OrderType
	TableID    *int64
	CustomerID *int64
	Items      []NewOrderItem
}

// OrderService opens pending orders. Prices come from the catalog at the
// time the order is taken; stock is not touched until confirmation.
type OrderService struct {
	db        TransactionManager
	dialect   storage.Dialect
	products  ProductCatalog
	orders    OrderWriter
	items     OrderItemWriter
	taxRate   decimal.Decimal
	logger    *zap.Logger
	txTimeout time.Duration
	now       func() time.Time
}

func NewOrderService(
	db TransactionManager,
	dialect storage.Dialect,
	products ProductCatalog,
	orders OrderWriter,
	items OrderItemWriter,
	taxRate decimal.Decimal,
	logger *zap.Logger,
	txTimeout time.Duration,
) *OrderService {
	return &OrderService{
		db:        db,
		dialect:   dialect,
		products:  products,
		orders:    orders,
		items:     items,
		taxRate:   taxRate,
		logger:    logger,
		txTimeout: txTimeout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validateNewOrder(in NewOrder) error {
	var details []apperrors.ValidationDetail
	if !in.Type.Valid() {
		details = append(details, apperrors.ValidationDetail{Field: "type", Message: fmt.Sprintf("unknown order type %q", in.Type)})
	}
	if len(in.Items) == 0 {
		details = append(details, apperrors.ValidationDetail{Field: "items", Message: "at least one item is required"})
	}

	seen := make(map[int64]struct{}, len(in.Items))
	for i, item := range in.Items {
		field := "items[" + strconv.Itoa(i) + "]"
		if item.ProductID <= 0 {
			details = append(details, apperrors.ValidationDetail{Field: field + ".productId", Message: "must be positive"})
		}
		if item.Quantity < 1 || item.Quantity > maxItemQuantity {
			details = append(details, apperrors.ValidationDetail{Field: field + ".quantity", Message: "must be between 1 and " + strconv.Itoa(maxItemQuantity)})
		}
		if _, dup := seen[item.ProductID]; dup {
			details = append(details, apperrors.ValidationDetail{Field: field + ".productId", Message: "duplicate product"})
		}
		seen[item.ProductID] = struct{}{}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid order", details...)
	}
	return nil
}

// CreateOrder stores a pending order with its items. Every product must
// exist and be orderable right now.
func (s *OrderService) CreateOrder(ctx context.Context, in NewOrder) (*domain.Order, error) {
	if err := validateNewOrder(in); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, s.dialect.TxOptions())
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "beginning order creation", err)
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(in.Items))
	for _, item := range in.Items {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.FindByIDs(txCtx, tx, ids)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "loading products", err)
	}
	byID := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := s.now()
	order := domain.Order{
		OrderNumber: "ORD-" + strings.ToUpper(uuid.NewString()[:8]),
		Type:        in.Type,
		Status:      domain.OrderStatusPending,
		TableID:     in.TableID,
		CustomerID:  in.CustomerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	subtotal := decimal.Zero
	for _, item := range in.Items {
		p, ok := byID[item.ProductID]
		if !ok {
			return nil, apperrors.NewNotFoundError("product " + strconv.FormatInt(item.ProductID, 10) + " not found")
		}
		if !p.Orderable() {
			return nil, apperrors.NewValidationError("product not orderable", apperrors.ValidationDetail{
				Field:   "productId",
				Message: fmt.Sprintf("product %d (%s) is not available", p.ID, p.Name),
			})
		}

		line := domain.OrderItem{
			ProductID: p.ID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
			Status:    domain.ItemStatusPending,
		}
		subtotal = subtotal.Add(line.LineTotal())
		order.Items = append(order.Items, line)
	}

	order.Subtotal = subtotal
	order.Tax = subtotal.Mul(s.taxRate).Round(2)
	order.Total = order.Subtotal.Add(order.Tax)

	orderID, err := s.orders.Insert(txCtx, tx, order)
	if err != nil {
		s.logger.Error("failed to insert order", zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "inserting order", err)
	}
	order.ID = orderID

	for i := range order.Items {
		order.Items[i].OrderID = orderID
		itemID, err := s.items.Insert(txCtx, tx, order.Items[i])
		if err != nil {
			s.logger.Error("failed to insert order item", zap.Int64("orderId", orderID), zap.Error(err))
			return nil, storage.WrapConflict(s.dialect, "inserting order item", err)
		}
		order.Items[i].ID = itemID
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit transaction", zap.Int64("orderId", orderID), zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "committing order creation", err)
	}

	s.logger.Info("order created",
		zap.Int64("orderId", orderID),
		zap.String("orderNumber", order.OrderNumber),
		zap.Int("itemCount", len(order.Items)),
		zap.String("total", order.Total.String()),
	)

	return &order, nil
}
