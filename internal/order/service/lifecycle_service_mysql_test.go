package service

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"comanda/internal/config"
	"comanda/internal/storage"
	"comanda/internal/testutil"
)

// truncateAll empties every table between scenarios sharing one container.
func truncateAll(t *testing.T, db *sql.DB) {
	t.Helper()
	for _, table := range []string{
		"order_items", "orders", "ingredient_history", "product_ingredients", "products", "ingredients",
	} {
		_, err := db.Exec(`DELETE FROM ` + table)
		require.NoError(t, err, "clearing %s", table)
	}
}

// TestConfirmOrder_MySQL runs the concurrency scenarios against InnoDB, where
// writers are serialized by row locks under REPEATABLE READ rather than by a
// database-wide write lock.
func TestConfirmOrder_MySQL(t *testing.T) {
	db := testutil.NewMySQLDB(t)
	db.SetMaxOpenConns(16)

	scenarios := []struct {
		name string
		run  func(t *testing.T, f *engineFixture)
	}{
		{"concurrent exhaustion", confirmConcurrentExhaustion},
		{"atomic across ingredients", confirmAtomicAcrossIngredients},
		{"overlapping ingredients, one short", confirmOverlappingShort},
		{"overlapping ingredients, both fit", confirmOverlappingBothFit},
	}

	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			truncateAll(t, db)
			sc.run(t, newEngineFixtureOn(t, db, storage.MySQLDialect{}, config.PartialCancelRestoreAll))
		})
	}
}
