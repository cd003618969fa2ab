package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/storage"
)

const orderColumns = `id, order_number, type, status, subtotal, tax, total, table_id, customer_id,
	       served_at, completed_at, cancelled_at, created_at, updated_at`

type OrderRepository struct {
	db      *sql.DB
	dialect storage.Dialect
}

func NewOrderRepository(db *sql.DB, dialect storage.Dialect) *OrderRepository {
	return &OrderRepository{db: db, dialect: dialect}
}

func scanOrder(row *sql.Row) (*domain.Order, error) {
	var (
		o                                  domain.Order
		orderType, status                  string
		tableID, customerID                sql.NullInt64
		servedAt, completedAt, cancelledAt sql.NullTime
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &orderType, &status, &o.Subtotal, &o.Tax, &o.Total, &tableID, &customerID,
		&servedAt, &completedAt, &cancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	if tableID.Valid {
		o.TableID = &tableID.Int64
	}
	if customerID.Valid {
		o.CustomerID = &customerID.Int64
	}
	if servedAt.Valid {
		o.ServedAt = &servedAt.Time
	}
	if completedAt.Valid {
		o.CompletedAt = &completedAt.Time
	}
	if cancelledAt.Valid {
		o.CancelledAt = &cancelledAt.Time
	}

	return &o, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying order by id: %w", err)
	}

	return order, nil
}

// FindByIDForUpdate reads the order and holds its row lock until tx ends, so
// concurrent transitions of one order serialize.
func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?` + r.dialect.LockClause()

	order, err := scanOrder(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("locking order %d: %w", id, err)
	}

	return order, nil
}

// UpdateStatus writes the new status and stamps the timestamp the status
// carries, if any.
func (r *OrderRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status domain.OrderStatus, at time.Time) error {
	query := `UPDATE orders SET status = ?, updated_at = ?`
	args := []any{string(status), at}

	switch status {
	case domain.OrderStatusServed:
		query += `, served_at = ?`
		args = append(args, at)
	case domain.OrderStatusCompleted:
		query += `, completed_at = ?`
		args = append(args, at)
	case domain.OrderStatusCancelled:
		query += `, cancelled_at = ?`
		args = append(args, at)
	}

	query += ` WHERE id = ?`
	args = append(args, id)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order with id %d not found", id))
	}

	return nil
}

func (r *OrderRepository) Insert(ctx context.Context, tx *sql.Tx, order domain.Order) (int64, error) {
	query := `
		INSERT INTO orders (order_number, type, status, subtotal, tax, total, table_id, customer_id,
		                    created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		order.OrderNumber, string(order.Type), string(order.Status), order.Subtotal, order.Tax, order.Total,
		order.TableID, order.CustomerID, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting order: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return lastInsertID, nil
}
