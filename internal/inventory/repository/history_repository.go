package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
	"comanda/internal/storage"
)

const historyColumns = `id, ingredient_id, order_id, operation, quantity, previous_stock, new_stock,
	       actor, reason, created_at`

// HistoryRepository is append-only: ledger rows are never updated or deleted.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Insert(ctx context.Context, tx *sql.Tx, entry domain.LedgerEntry) (int64, error) {
	query := `
		INSERT INTO ingredient_history (ingredient_id, order_id, operation, quantity, previous_stock,
		                                new_stock, actor, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		entry.IngredientID, entry.OrderID, string(entry.Operation), entry.Quantity, entry.PreviousStock,
		entry.NewStock, entry.Actor, entry.Reason, entry.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting ledger entry: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return lastInsertID, nil
}

// ListByIngredient returns the ingredient's chain in creation order. A limit
// of zero or less returns the whole chain.
func (r *HistoryRepository) ListByIngredient(ctx context.Context, ingredientID int64, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM ingredient_history WHERE ingredient_id = ? ORDER BY id`
	args := []any{ingredientID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return r.list(ctx, r.db, query, args...)
}

// ListChain returns the ingredient's whole chain through q, so a caller
// holding the ingredient row lock sees the entries that row reflects.
func (r *HistoryRepository) ListChain(ctx context.Context, q storage.Querier, ingredientID int64) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM ingredient_history WHERE ingredient_id = ? ORDER BY id`
	return r.list(ctx, q, query, ingredientID)
}

// ListByOrder returns the order's entries of one operation, ordered by
// ingredient id so callers lock rows in a stable order.
func (r *HistoryRepository) ListByOrder(ctx context.Context, q storage.Querier, orderID int64, operation domain.StockOperation) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + historyColumns + ` FROM ingredient_history
		WHERE order_id = ? AND operation = ?
		ORDER BY ingredient_id, id`

	return r.list(ctx, q, query, orderID, string(operation))
}

func (r *HistoryRepository) list(ctx context.Context, q storage.Querier, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var (
			e         domain.LedgerEntry
			orderID   sql.NullInt64
			reason    sql.NullString
			operation string
		)
		err := rows.Scan(
			&e.ID, &e.IngredientID, &orderID, &operation, &e.Quantity, &e.PreviousStock, &e.NewStock,
			&e.Actor, &reason, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning ledger row: %w", err)
		}
		e.Operation = domain.StockOperation(operation)
		if orderID.Valid {
			e.OrderID = &orderID.Int64
		}
		if reason.Valid {
			e.Reason = &reason.String
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ledger rows: %w", err)
	}

	return entries, nil
}
