package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/storage"
	"comanda/internal/testutil"
)

func TestIngredientRepository_FindByID(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewIngredientRepository(db, storage.SQLiteDialect{})

	id := testutil.SeedIngredient(t, db, "Beef", "2.5")

	ingredient, err := repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Beef", ingredient.Name)
	assert.True(t, decimal.RequireFromString("2.5").Equal(ingredient.CurrentStock))
	assert.True(t, ingredient.IsActive)
}

func TestIngredientRepository_FindByID_NotFound(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewIngredientRepository(db, storage.SQLiteDialect{})

	_, err := repo.FindByID(context.Background(), 404)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestIngredientRepository_InsertStartsAtZero(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewIngredientRepository(db, storage.SQLiteDialect{})
	ctx := context.Background()
	now := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	id, err := repo.Insert(ctx, tx, domain.Ingredient{
		Name:         " Cheese ",
		Unit:         "kg",
		CurrentStock: decimal.NewFromInt(50),
		MinimumStock: decimal.NewFromInt(1),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	ingredient, err := repo.FindByName(ctx, db, "Cheese")
	require.NoError(t, err)
	assert.Equal(t, id, ingredient.ID)
	assert.True(t, ingredient.CurrentStock.IsZero())
	assert.True(t, ingredient.IsLowStock())
}

func TestIngredientRepository_UpdateStockAndLock(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewIngredientRepository(db, storage.SQLiteDialect{})
	ctx := context.Background()

	a := testutil.SeedIngredient(t, db, "A", "5")
	b := testutil.SeedIngredient(t, db, "B", "1")

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	locked, err := repo.FindByIDForUpdate(ctx, tx, a)
	require.NoError(t, err)
	assert.Equal(t, "A", locked.Name)

	require.NoError(t, repo.UpdateStock(ctx, tx, a, decimal.RequireFromString("4.125"), time.Now().UTC()))

	stocks, err := repo.LockStocks(ctx, tx, []int64{a, b})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("4.125").Equal(stocks[a]))
	assert.True(t, decimal.NewFromInt(1).Equal(stocks[b]))

	err = repo.UpdateStock(ctx, tx, 999, decimal.Zero, time.Now().UTC())
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestIngredientRepository_FindAll(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewIngredientRepository(db, storage.SQLiteDialect{})

	testutil.SeedIngredient(t, db, "Salt", "1")
	testutil.SeedIngredient(t, db, "Pepper", "0")

	ingredients, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ingredients, 2)
	assert.Equal(t, "Salt", ingredients[0].Name)
	assert.False(t, ingredients[1].InStock())
}
