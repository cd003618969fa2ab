package recipe

import (
	"context"

	"comanda/internal/domain"
	"comanda/internal/storage"
)

type Repository interface {
	FindByProductIDs(ctx context.Context, q storage.Querier, productIDs []int64) ([]domain.RecipeLine, error)
	FindProductIDsByIngredients(ctx context.Context, q storage.Querier, ingredientIDs []int64) ([]int64, error)
}

// Index answers which ingredients, and how much of each, a product consumes.
type Index struct {
	db   storage.Querier
	repo Repository
}

func NewIndex(db storage.Querier, repo Repository) *Index {
	return &Index{db: db, repo: repo}
}

func (x *Index) IngredientsFor(ctx context.Context, productID int64) ([]domain.RecipeLine, error) {
	lines, err := x.repo.FindByProductIDs(ctx, x.db, []int64{productID})
	if err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []domain.RecipeLine{}
	}
	return lines, nil
}

// IngredientsForMany is the batch form of IngredientsFor, keyed by product.
func (x *Index) IngredientsForMany(ctx context.Context, q storage.Querier, productIDs []int64) (map[int64][]domain.RecipeLine, error) {
	lines, err := x.repo.FindByProductIDs(ctx, q, productIDs)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[int64][]domain.RecipeLine, len(productIDs))
	for _, line := range lines {
		byProduct[line.ProductID] = append(byProduct[line.ProductID], line)
	}
	return byProduct, nil
}

// Requirements expands order items into one consolidated amount per
// ingredient, sorted by ingredient id. q lets the caller read recipes inside
// its own transaction.
func (x *Index) Requirements(ctx context.Context, q storage.Querier, items []domain.OrderItem) ([]domain.Requirement, error) {
	seen := make(map[int64]struct{}, len(items))
	productIDs := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		productIDs = append(productIDs, item.ProductID)
	}

	recipes, err := x.IngredientsForMany(ctx, q, productIDs)
	if err != nil {
		return nil, err
	}

	return domain.ExpandRequirements(items, recipes), nil
}

// ProductsUsing returns the products whose recipe references any of the
// ingredients.
func (x *Index) ProductsUsing(ctx context.Context, q storage.Querier, ingredientIDs []int64) ([]int64, error) {
	return x.repo.FindProductIDsByIngredients(ctx, q, ingredientIDs)
}
