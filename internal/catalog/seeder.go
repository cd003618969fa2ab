package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/inventory/ledger"
	"comanda/internal/storage"
)

const seedActor = "catalog-seed"

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type IngredientRepository interface {
	FindByName(ctx context.Context, q storage.Querier, name string) (*domain.Ingredient, error)
	Insert(ctx context.Context, tx *sql.Tx, ingredient domain.Ingredient) (int64, error)
}

type ProductRepository interface {
	FindByName(ctx context.Context, q storage.Querier, name string) (*domain.Product, error)
	Insert(ctx context.Context, tx *sql.Tx, p domain.Product) (int64, error)
	UpdateDetails(ctx context.Context, tx *sql.Tx, p domain.Product) error
}

type RecipeRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, line domain.RecipeLine) error
	DeleteByProduct(ctx context.Context, tx *sql.Tx, productID int64) error
}

type StockLedger interface {
	ApplyDelta(ctx context.Context, tx *sql.Tx, d ledger.Delta) (*domain.LedgerEntry, error)
}

type AvailabilitySyncer interface {
	SyncAll(ctx context.Context) ([]domain.AvailabilityChange, error)
}

type SeedResult struct {
	IngredientsCreated int
	IngredientsKept    int
	ProductsCreated    int
	ProductsUpdated    int
	AvailabilityFlips  int
}

// Seeder loads a catalog into the store. New ingredients get their stock
// through restock entries; ingredients that already exist keep their stock,
// so seeding twice never invents inventory.
type Seeder struct {
	db          TransactionManager
	dialect     storage.Dialect
	ingredients IngredientRepository
	products    ProductRepository
	recipes     RecipeRepository
	ledger      StockLedger
	syncer      AvailabilitySyncer
	logger      *zap.Logger
	now         func() time.Time
}

func NewSeeder(
	db TransactionManager,
	dialect storage.Dialect,
	ingredients IngredientRepository,
	products ProductRepository,
	recipes RecipeRepository,
	stockLedger StockLedger,
	syncer AvailabilitySyncer,
	logger *zap.Logger,
) *Seeder {
	return &Seeder{
		db:          db,
		dialect:     dialect,
		ingredients: ingredients,
		products:    products,
		recipes:     recipes,
		ledger:      stockLedger,
		syncer:      syncer,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Seed validates c before touching the store, so a catalog built in code is
// held to the same rules as one read by Load.
func (s *Seeder) Seed(ctx context.Context, c *Catalog) (*SeedResult, error) {
	if c == nil {
		return nil, apperrors.NewValidationError("invalid catalog", apperrors.ValidationDetail{Field: "catalog", Message: "catalog is required"})
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, s.dialect.TxOptions())
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "beginning catalog seed", err)
	}
	defer tx.Rollback()

	result := &SeedResult{}
	ingredientIDs, err := s.seedIngredients(ctx, tx, c.Ingredients, result)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "seeding ingredients", err)
	}

	if err := s.seedProducts(ctx, tx, c.Products, ingredientIDs, result); err != nil {
		return nil, storage.WrapConflict(s.dialect, "seeding products", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.WrapConflict(s.dialect, "committing catalog seed", err)
	}

	changes, err := s.syncer.SyncAll(ctx)
	if err != nil {
		return nil, err
	}
	result.AvailabilityFlips = len(changes)

	s.logger.Info("catalog seeded",
		zap.Int("ingredientsCreated", result.IngredientsCreated),
		zap.Int("ingredientsKept", result.IngredientsKept),
		zap.Int("productsCreated", result.ProductsCreated),
		zap.Int("productsUpdated", result.ProductsUpdated),
		zap.Int("availabilityFlips", result.AvailabilityFlips),
	)

	return result, nil
}

func (s *Seeder) seedIngredients(ctx context.Context, tx *sql.Tx, specs []IngredientSpec, result *SeedResult) (map[string]int64, error) {
	ids := make(map[string]int64, len(specs))
	now := s.now()

	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)

		existing, err := s.ingredients.FindByName(ctx, tx, name)
		if err == nil {
			ids[name] = existing.ID
			result.IngredientsKept++
			s.logger.Debug("ingredient exists, stock kept", zap.String("ingredient", name))
			continue
		}
		if _, notFound := apperrors.IsNotFoundError(err); !notFound {
			return nil, err
		}

		var stock, minimum, maximum, unitCost decimal.Decimal
		for _, f := range []struct {
			dst *decimal.Decimal
			key string
			raw string
		}{
			{&stock, "stock", spec.Stock},
			{&minimum, "minimum", spec.Minimum},
			{&maximum, "maximum", spec.Maximum},
			{&unitCost, "unitCost", spec.UnitCost},
		} {
			if *f.dst, err = amount(f.raw); err != nil {
				return nil, fmt.Errorf("ingredient %q %s: %w", name, f.key, err)
			}
		}

		id, err := s.ingredients.Insert(ctx, tx, domain.Ingredient{
			Name:         name,
			Unit:         strings.TrimSpace(spec.Unit),
			MinimumStock: minimum,
			MaximumStock: maximum,
			UnitCost:     unitCost,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return nil, err
		}
		ids[name] = id
		result.IngredientsCreated++

		if stock.IsPositive() {
			reason := "catalog seed"
			if _, err := s.ledger.ApplyDelta(ctx, tx, ledger.Delta{
				IngredientID: id,
				Quantity:     stock,
				Operation:    domain.OperationRestock,
				Actor:        seedActor,
				Reason:       &reason,
			}); err != nil {
				return nil, err
			}
		}
	}

	return ids, nil
}

func (s *Seeder) seedProducts(ctx context.Context, tx *sql.Tx, specs []ProductSpec, ingredientIDs map[string]int64, result *SeedResult) error {
	now := s.now()

	for _, spec := range specs {
		name := strings.TrimSpace(spec.Name)
		price, err := amount(spec.Price)
		if err != nil {
			return fmt.Errorf("product %q price: %w", name, err)
		}

		product := domain.Product{
			Name:        name,
			Description: spec.Description,
			Price:       price,
			Category:    spec.Category,
			IsActive:    !spec.Inactive,
			IsAvailable: true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		existing, err := s.products.FindByName(ctx, tx, name)
		switch {
		case err == nil:
			product.ID = existing.ID
			if err := s.products.UpdateDetails(ctx, tx, product); err != nil {
				return err
			}
			result.ProductsUpdated++
		default:
			if _, notFound := apperrors.IsNotFoundError(err); !notFound {
				return err
			}
			id, err := s.products.Insert(ctx, tx, product)
			if err != nil {
				return err
			}
			product.ID = id
			result.ProductsCreated++
		}

		if err := s.recipes.DeleteByProduct(ctx, tx, product.ID); err != nil {
			return err
		}
		for _, line := range spec.Recipe {
			ingredientID, ok := ingredientIDs[strings.TrimSpace(line.Ingredient)]
			if !ok {
				return apperrors.NewNotFoundError(fmt.Sprintf("product %q uses unknown ingredient %q", name, line.Ingredient))
			}
			qty, err := amount(line.Quantity)
			if err != nil {
				return fmt.Errorf("product %q recipe quantity: %w", name, err)
			}
			if err := s.recipes.Insert(ctx, tx, domain.RecipeLine{
				ProductID:        product.ID,
				IngredientID:     ingredientID,
				QuantityRequired: qty,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}
