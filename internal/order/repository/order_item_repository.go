package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/storage"
)

type OrderItemRepository struct {
	db *sql.DB
}

func NewOrderItemRepository(db *sql.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

func (r *OrderItemRepository) Insert(ctx context.Context, tx *sql.Tx, item domain.OrderItem) (int64, error) {
	query := `INSERT INTO order_items (order_id, product_id, quantity, unit_price, status) VALUES (?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, string(item.Status))
	if err != nil {
		return 0, fmt.Errorf("inserting order item: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return lastInsertID, nil
}

func (r *OrderItemRepository) FindByOrderID(ctx context.Context, q storage.Querier, orderID int64) ([]domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, status
		FROM order_items
		WHERE order_id = ?
		ORDER BY id`

	rows, err := q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying order items: %w", err)
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var (
			item   domain.OrderItem
			status string
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &status); err != nil {
			return nil, fmt.Errorf("scanning order item: %w", err)
		}
		item.Status = domain.ItemStatus(status)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order items: %w", err)
	}

	return items, nil
}

func (r *OrderItemRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, orderID, itemID int64, status domain.ItemStatus) error {
	query := `UPDATE order_items SET status = ? WHERE id = ? AND order_id = ?`

	result, err := tx.ExecContext(ctx, query, string(status), itemID, orderID)
	if err != nil {
		return fmt.Errorf("updating order item status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("item %d of order %d not found", itemID, orderID))
	}

	return nil
}

// AdvanceItems moves the order's items currently in one of from to status.
func (r *OrderItemRepository) AdvanceItems(ctx context.Context, tx *sql.Tx, orderID int64, from []domain.ItemStatus, status domain.ItemStatus) error {
	if len(from) == 0 {
		return nil
	}

	args := []any{string(status), orderID}
	for _, s := range from {
		args = append(args, string(s))
	}

	query := fmt.Sprintf(`UPDATE order_items SET status = ? WHERE order_id = ? AND status IN (%s)`,
		storage.Placeholders(len(from)))

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("advancing order items: %w", err)
	}

	return nil
}
