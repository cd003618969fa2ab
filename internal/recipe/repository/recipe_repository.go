package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
	"comanda/internal/storage"
)

type RecipeRepository struct {
	db *sql.DB
}

func NewRecipeRepository(db *sql.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

// FindByProductIDs returns the recipe lines of the given products ordered by
// product then ingredient.
func (r *RecipeRepository) FindByProductIDs(ctx context.Context, q storage.Querier, productIDs []int64) ([]domain.RecipeLine, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT product_id, ingredient_id, quantity_required
		FROM product_ingredients
		WHERE product_id IN (%s)
		ORDER BY product_id, ingredient_id`,
		storage.Placeholders(len(productIDs)),
	)

	rows, err := q.QueryContext(ctx, query, int64Args(productIDs)...)
	if err != nil {
		return nil, fmt.Errorf("querying recipe lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.RecipeLine
	for rows.Next() {
		var line domain.RecipeLine
		if err := rows.Scan(&line.ProductID, &line.IngredientID, &line.QuantityRequired); err != nil {
			return nil, fmt.Errorf("scanning recipe line: %w", err)
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recipe lines: %w", err)
	}

	return lines, nil
}

// FindProductIDsByIngredients returns every product whose recipe references
// at least one of the ingredients.
func (r *RecipeRepository) FindProductIDsByIngredients(ctx context.Context, q storage.Querier, ingredientIDs []int64) ([]int64, error) {
	if len(ingredientIDs) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT product_id
		FROM product_ingredients
		WHERE ingredient_id IN (%s)
		ORDER BY product_id`,
		storage.Placeholders(len(ingredientIDs)),
	)

	return r.ids(ctx, q, query, int64Args(ingredientIDs)...)
}

func (r *RecipeRepository) ids(ctx context.Context, q storage.Querier, query string, args ...any) ([]int64, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying recipe products: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning product id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating product ids: %w", err)
	}

	return ids, nil
}

func (r *RecipeRepository) Insert(ctx context.Context, tx *sql.Tx, line domain.RecipeLine) error {
	query := `INSERT INTO product_ingredients (product_id, ingredient_id, quantity_required) VALUES (?, ?, ?)`

	if _, err := tx.ExecContext(ctx, query, line.ProductID, line.IngredientID, line.QuantityRequired); err != nil {
		return fmt.Errorf("inserting recipe line: %w", err)
	}

	return nil
}

// DeleteByProduct clears a product's recipe before it is rewritten.
func (r *RecipeRepository) DeleteByProduct(ctx context.Context, tx *sql.Tx, productID int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM product_ingredients WHERE product_id = ?`, productID); err != nil {
		return fmt.Errorf("deleting recipe lines: %w", err)
	}
	return nil
}
