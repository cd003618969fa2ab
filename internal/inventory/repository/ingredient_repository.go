package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/storage"
)

const ingredientColumns = `id, name, unit, current_stock, minimum_stock, maximum_stock, unit_cost,
	       is_active, created_at, updated_at`

type IngredientRepository struct {
	db      *sql.DB
	dialect storage.Dialect
}

func NewIngredientRepository(db *sql.DB, dialect storage.Dialect) *IngredientRepository {
	return &IngredientRepository{db: db, dialect: dialect}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngredient(row rowScanner) (*domain.Ingredient, error) {
	var i domain.Ingredient
	err := row.Scan(
		&i.ID, &i.Name, &i.Unit, &i.CurrentStock, &i.MinimumStock, &i.MaximumStock, &i.UnitCost,
		&i.IsActive, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *IngredientRepository) FindByID(ctx context.Context, id int64) (*domain.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = ?`

	ingredient, err := scanIngredient(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ingredient with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying ingredient by id: %w", err)
	}

	return ingredient, nil
}

// FindByIDForUpdate reads the ingredient and holds its row lock until tx ends.
func (r *IngredientRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE id = ?` + r.dialect.LockClause()

	ingredient, err := scanIngredient(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ingredient with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("locking ingredient %d: %w", id, err)
	}

	return ingredient, nil
}

func (r *IngredientRepository) FindByName(ctx context.Context, q storage.Querier, name string) (*domain.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients WHERE name = ?`

	ingredient, err := scanIngredient(q.QueryRowContext(ctx, query, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("ingredient %q not found", name))
	}
	if err != nil {
		return nil, fmt.Errorf("querying ingredient by name: %w", err)
	}

	return ingredient, nil
}

func (r *IngredientRepository) FindAll(ctx context.Context) ([]domain.Ingredient, error) {
	query := `SELECT ` + ingredientColumns + ` FROM ingredients ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []domain.Ingredient
	for rows.Next() {
		ingredient, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning ingredient row: %w", err)
		}
		ingredients = append(ingredients, *ingredient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ingredient rows: %w", err)
	}

	return ingredients, nil
}

// LockStocks locks the given ingredient rows in ascending id order and
// returns their current stock.
func (r *IngredientRepository) LockStocks(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]decimal.Decimal, error) {
	stocks := make(map[int64]decimal.Decimal, len(ids))
	if len(ids) == 0 {
		return stocks, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT id, current_stock FROM ingredients WHERE id IN (%s) ORDER BY id%s`,
		storage.Placeholders(len(ids)), r.dialect.LockClause())

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("locking ingredient stocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var stock decimal.Decimal
		if err := rows.Scan(&id, &stock); err != nil {
			return nil, fmt.Errorf("scanning ingredient stock: %w", err)
		}
		stocks[id] = stock
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ingredient stocks: %w", err)
	}

	return stocks, nil
}

func (r *IngredientRepository) UpdateStock(ctx context.Context, tx *sql.Tx, id int64, stock decimal.Decimal, updatedAt time.Time) error {
	query := `UPDATE ingredients SET current_stock = ?, updated_at = ? WHERE id = ?`

	result, err := tx.ExecContext(ctx, query, stock, updatedAt, id)
	if err != nil {
		return fmt.Errorf("updating ingredient stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("ingredient with id %d not found", id))
	}

	return nil
}

// Insert stores a new ingredient. Stock always starts at zero; any initial
// quantity has to go through the ledger.
func (r *IngredientRepository) Insert(ctx context.Context, tx *sql.Tx, ingredient domain.Ingredient) (int64, error) {
	query := `
		INSERT INTO ingredients (name, unit, current_stock, minimum_stock, maximum_stock, unit_cost,
		                         is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := tx.ExecContext(ctx, query,
		strings.TrimSpace(ingredient.Name), ingredient.Unit, decimal.Zero,
		ingredient.MinimumStock, ingredient.MaximumStock, ingredient.UnitCost,
		ingredient.IsActive, ingredient.CreatedAt, ingredient.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting ingredient: %w", err)
	}

	lastInsertID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return lastInsertID, nil
}
