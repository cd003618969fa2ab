package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"comanda/internal/infrastructure/sqlite"
	"comanda/internal/storage"
)

// NewSQLiteDB opens a migrated SQLite database in a per-test temp dir. A
// file (not :memory:) is used so concurrent connections share one database.
func NewSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "comanda_test.db")
	db, err := sql.Open("sqlite3", sqlite.DSN(path))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(8)

	if err := storage.Migrate(context.Background(), db, storage.SQLiteDialect{}); err != nil {
		db.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// NewMySQLDB starts a throwaway MySQL container and applies the schema.
// Skipped under -short or when no container runtime is reachable.
func NewMySQLDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mysql container in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcmysql.Run(ctx, "mysql:8.0.36",
		tcmysql.WithDatabase("comanda_test"),
		tcmysql.WithUsername("comanda"),
		tcmysql.WithPassword("secret"),
	)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "parseTime=true", "loc=UTC")
	if err != nil {
		t.Fatalf("failed to build mysql dsn: %v", err)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.Migrate(ctx, db, storage.MySQLDialect{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// SeedIngredient inserts an ingredient holding stock, recorded as a restock
// ledger entry from zero so replay checks hold.
func SeedIngredient(t *testing.T, db *sql.DB, name, stock string) int64 {
	t.Helper()

	now := time.Now().UTC()
	qty := decimal.RequireFromString(stock)

	res, err := db.Exec(`
		INSERT INTO ingredients (name, unit, current_stock, minimum_stock, maximum_stock, unit_cost, is_active, created_at, updated_at)
		VALUES (?, 'unit', ?, '0', '0', '0', 1, ?, ?)`,
		name, qty, now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed ingredient %s: %v", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read ingredient id: %v", err)
	}

	if qty.IsPositive() {
		_, err = db.Exec(`
			INSERT INTO ingredient_history (ingredient_id, order_id, operation, quantity, previous_stock, new_stock, actor, reason, created_at)
			VALUES (?, NULL, 'restock', ?, '0', ?, 'seed', NULL, ?)`,
			id, qty, qty, now,
		)
		if err != nil {
			t.Fatalf("failed to seed ingredient history for %s: %v", name, err)
		}
	}

	return id
}

// RecipeLine is one ingredient requirement used by SeedProduct.
type RecipeLine struct {
	IngredientID int64
	Quantity     string
}

func SeedProduct(t *testing.T, db *sql.DB, name, price string, recipe ...RecipeLine) int64 {
	t.Helper()

	now := time.Now().UTC()
	res, err := db.Exec(`
		INSERT INTO products (name, description, price, category, is_active, is_available, availability_override, created_at, updated_at)
		VALUES (?, '', ?, 'main', 1, 1, NULL, ?, ?)`,
		name, decimal.RequireFromString(price), now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read product id: %v", err)
	}

	for _, line := range recipe {
		_, err := db.Exec(`
			INSERT INTO product_ingredients (product_id, ingredient_id, quantity_required)
			VALUES (?, ?, ?)`,
			id, line.IngredientID, decimal.RequireFromString(line.Quantity),
		)
		if err != nil {
			t.Fatalf("failed to seed recipe line for %s: %v", name, err)
		}
	}

	return id
}

// OrderLine is one item used by SeedOrder.
type OrderLine struct {
	ProductID int64
	Quantity  int
}

// SeedOrder inserts an order in the given status with unit prices of 1.
func SeedOrder(t *testing.T, db *sql.DB, number, status string, lines ...OrderLine) int64 {
	t.Helper()

	now := time.Now().UTC()
	res, err := db.Exec(`
		INSERT INTO orders (order_number, type, status, subtotal, tax, total, created_at, updated_at)
		VALUES (?, 'dine_in', ?, '0', '0', '0', ?, ?)`,
		number, status, now, now,
	)
	if err != nil {
		t.Fatalf("failed to seed order %s: %v", number, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read order id: %v", err)
	}

	for _, line := range lines {
		_, err := db.Exec(`
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, status)
			VALUES (?, ?, ?, '1', 'pending')`,
			id, line.ProductID, line.Quantity,
		)
		if err != nil {
			t.Fatalf("failed to seed order item for %s: %v", number, err)
		}
	}

	return id
}

// StockOf reads an ingredient's current stock straight from the table.
func StockOf(t *testing.T, db *sql.DB, ingredientID int64) decimal.Decimal {
	t.Helper()

	var stock decimal.Decimal
	if err := db.QueryRow(`SELECT current_stock FROM ingredients WHERE id = ?`, ingredientID).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock of ingredient %d: %v", ingredientID, err)
	}
	return stock
}

// CountHistory counts ledger rows for an ingredient and operation.
func CountHistory(t *testing.T, db *sql.DB, ingredientID int64, operation string) int {
	t.Helper()

	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM ingredient_history WHERE ingredient_id = ? AND operation = ?`,
		ingredientID, operation).Scan(&n)
	if err != nil {
		t.Fatalf("failed to count history of ingredient %d: %v", ingredientID, err)
	}
	return n
}
