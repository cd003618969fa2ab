package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/config"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/infrastructure/memory"
	"comanda/internal/inventory/ledger"
	inventoryrepo "comanda/internal/inventory/repository"
	"comanda/internal/order/repository"
	productrepo "comanda/internal/product/repository"
	productservice "comanda/internal/product/service"
	"comanda/internal/recipe"
	reciperepo "comanda/internal/recipe/repository"
	"comanda/internal/storage"
	"comanda/internal/testutil"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []domain.EventType
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

type engineFixture struct {
	db        *sql.DB
	engine    *LifecycleService
	orders    *OrderService
	history   *inventoryrepo.HistoryRepository
	products  *productrepo.ProductRepository
	publisher *recordingPublisher
}

func newEngineFixture(t *testing.T, policy string) *engineFixture {
	t.Helper()
	return newEngineFixtureOn(t, testutil.NewSQLiteDB(t), storage.SQLiteDialect{}, policy)
}

func newEngineFixtureOn(t *testing.T, db *sql.DB, dialect storage.Dialect, policy string) *engineFixture {
	t.Helper()

	ingredients := inventoryrepo.NewIngredientRepository(db, dialect)
	history := inventoryrepo.NewHistoryRepository(db)
	products := productrepo.NewProductRepository(db, dialect)
	index := recipe.NewIndex(db, reciperepo.NewRecipeRepository(db))
	publisher := &recordingPublisher{}

	syncer := productservice.NewAvailabilitySynchronizer(
		db, dialect, products, index, ingredients, memory.NewResyncBacklog(), publisher, zap.NewNop(),
	)

	orders := repository.NewOrderRepository(db, dialect)
	items := repository.NewOrderItemRepository(db)

	engine := NewLifecycleService(
		db, dialect, orders, items, index,
		ledger.New(ingredients, history, zap.NewNop()),
		history, syncer, publisher, zap.NewNop(),
		5*time.Second, policy,
	)

	creator := NewOrderService(db, dialect, products, orders, items, d("0.1"), zap.NewNop(), 5*time.Second)

	return &engineFixture{
		db:        db,
		engine:    engine,
		orders:    creator,
		history:   history,
		products:  products,
		publisher: publisher,
	}
}

func (f *engineFixture) assertReplayMatches(t *testing.T, ingredientIDs ...int64) {
	t.Helper()
	for _, id := range ingredientIDs {
		entries, err := f.history.ListByIngredient(context.Background(), id, 0)
		require.NoError(t, err)
		for _, e := range entries {
			assert.True(t, e.Balanced(), "entry %d is not balanced", e.ID)
		}
		assert.True(t, testutil.StockOf(t, f.db, id).Equal(domain.ReplayStock(entries)),
			"ingredient %d replay differs from current stock", id)
	}
}

func TestConfirmOrder_ConsumesRecipe(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)
	ctx := context.Background()

	beef := testutil.SeedIngredient(t, f.db, "Beef", "2")
	bun := testutil.SeedIngredient(t, f.db, "Bun", "10")
	burger := testutil.SeedProduct(t, f.db, "Burger", "9.50",
		testutil.RecipeLine{IngredientID: beef, Quantity: "0.15"},
		testutil.RecipeLine{IngredientID: bun, Quantity: "1"},
	)
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 2})

	order, err := f.engine.ConfirmOrder(ctx, orderID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.True(t, d("1.7").Equal(testutil.StockOf(t, f.db, beef)))
	assert.True(t, d("8").Equal(testutil.StockOf(t, f.db, bun)))
	assert.Equal(t, 1, testutil.CountHistory(t, f.db, beef, "order_consumption"))
	assert.Contains(t, f.publisher.types(), domain.EventOrderConfirmed)

	f.assertReplayMatches(t, beef, bun)
}

func TestConfirmOrder_Idempotent(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)
	ctx := context.Background()

	beef := testutil.SeedIngredient(t, f.db, "Beef", "2")
	burger := testutil.SeedProduct(t, f.db, "Burger", "9.50", testutil.RecipeLine{IngredientID: beef, Quantity: "0.5"})
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 1})

	_, err := f.engine.ConfirmOrder(ctx, orderID)
	require.NoError(t, err)
	order, err := f.engine.ConfirmOrder(ctx, orderID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Len(t, order.Items, 1)
	assert.True(t, d("1.5").Equal(testutil.StockOf(t, f.db, beef)))
	assert.Equal(t, 1, testutil.CountHistory(t, f.db, beef, "order_consumption"))
}

func TestConfirmOrder_LateRetryAfterKitchenStarted(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)
	ctx := context.Background()

	beef := testutil.SeedIngredient(t, f.db, "Beef", "2")
	burger := testutil.SeedProduct(t, f.db, "Burger", "9.50", testutil.RecipeLine{IngredientID: beef, Quantity: "0.5"})
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 1})

	_, err := f.engine.ConfirmOrder(ctx, orderID)
	require.NoError(t, err)
	_, err = f.engine.AdvanceOrder(ctx, orderID, domain.OrderStatusPreparing)
	require.NoError(t, err)

	order, err := f.engine.ConfirmOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPreparing, order.Status)
	assert.True(t, d("1.5").Equal(testutil.StockOf(t, f.db, beef)))
	assert.Equal(t, 1, testutil.CountHistory(t, f.db, beef, "order_consumption"))

	_, err = f.engine.CancelOrder(ctx, orderID)
	require.NoError(t, err)
	_, err = f.engine.ConfirmOrder(ctx, orderID)
	_, ok := apperrors.IsInvalidTransitionError(err)
	assert.True(t, ok, "a cancelled order never passed confirmed, got %v", err)
}

func TestConfirmOrder_AtomicAcrossIngredients(t *testing.T) {
	confirmAtomicAcrossIngredients(t, newEngineFixture(t, config.PartialCancelRestoreAll))
}

// confirmAtomicAcrossIngredients confirms an order whose second ingredient
// is short and expects nothing to change.
func confirmAtomicAcrossIngredients(t *testing.T, f *engineFixture) {
	ctx := context.Background()

	a := testutil.SeedIngredient(t, f.db, "Flour", "5")
	b := testutil.SeedIngredient(t, f.db, "Egg", "1")
	cake := testutil.SeedProduct(t, f.db, "Cake", "15",
		testutil.RecipeLine{IngredientID: a, Quantity: "2"},
		testutil.RecipeLine{IngredientID: b, Quantity: "3"},
	)
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: cake, Quantity: 1})

	_, err := f.engine.ConfirmOrder(ctx, orderID)
	require.Error(t, err)

	ise, ok := apperrors.IsInsufficientStockError(err)
	require.True(t, ok, "expected InsufficientStockError, got %v", err)
	assert.Equal(t, b, ise.IngredientID)
	assert.Equal(t, "Egg", ise.IngredientName)
	assert.True(t, d("1").Equal(ise.Available))
	assert.True(t, d("3").Equal(ise.Requested))

	assert.True(t, d("5").Equal(testutil.StockOf(t, f.db, a)))
	assert.True(t, d("1").Equal(testutil.StockOf(t, f.db, b)))
	assert.Zero(t, testutil.CountHistory(t, f.db, a, "order_consumption"))

	var status string
	require.NoError(t, f.db.QueryRow(`SELECT status FROM orders WHERE id = ?`, orderID).Scan(&status))
	assert.Equal(t, "pending", status)
}

func TestCancelOrder_RestoresConsumption(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)
	ctx := context.Background()

	beef := testutil.SeedIngredient(t, f.db, "Beef", "1")
	bun := testutil.SeedIngredient(t, f.db, "Bun", "4")
	burger := testutil.SeedProduct(t, f.db, "Burger", "9.50",
		testutil.RecipeLine{IngredientID: beef, Quantity: "0.25"},
		testutil.RecipeLine{IngredientID: bun, Quantity: "1"},
	)
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 4})

	_, err := f.engine.ConfirmOrder(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, testutil.StockOf(t, f.db, beef).IsZero())
	p, err := f.products.FindByID(ctx, burger)
	require.NoError(t, err)
	assert.False(t, p.IsAvailable)

	_, err = f.engine.AdvanceOrder(ctx, orderID, domain.OrderStatusPreparing)
	require.NoError(t, err)

	order, err := f.engine.CancelOrder(ctx, orderID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	require.NotNil(t, order.CancelledAt)
	for _, item := range order.Items {
		assert.Equal(t, domain.ItemStatusCancelled, item.Status)
	}
	assert.True(t, d("1").Equal(testutil.StockOf(t, f.db, beef)))
	assert.True(t, d("4").Equal(testutil.StockOf(t, f.db, bun)))
	assert.Equal(t, 1, testutil.CountHistory(t, f.db, beef, "order_cancellation"))

	p, err = f.products.FindByID(ctx, burger)
	require.NoError(t, err)
	assert.True(t, p.IsAvailable)

	again, err := f.engine.CancelOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, again.Status)
	assert.Equal(t, 1, testutil.CountHistory(t, f.db, beef, "order_cancellation"))

	f.assertReplayMatches(t, beef, bun)
}

func TestCancelOrder_PendingTouchesNoStock(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)

	beef := testutil.SeedIngredient(t, f.db, "Beef", "1")
	burger := testutil.SeedProduct(t, f.db, "Burger", "9.50", testutil.RecipeLine{IngredientID: beef, Quantity: "0.25"})
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 1})

	order, err := f.engine.CancelOrder(context.Background(), orderID)
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	assert.Zero(t, testutil.CountHistory(t, f.db, beef, "order_cancellation"))
	assert.True(t, d("1").Equal(testutil.StockOf(t, f.db, beef)))
}

func TestCancelOrder_ServedRestoresNothing(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)
	ctx := context.Background()

	beef := testutil.SeedIngredient(t, f.db, "Beef", "1")
	burger := testutil.SeedProduct(t, f.db, "Burger", "9.50", testutil.RecipeLine{IngredientID: beef, Quantity: "0.25"})
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 1})

	for _, to := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusReady,
		domain.OrderStatusServed,
	} {
		_, err := f.engine.AdvanceOrder(ctx, orderID, to)
		require.NoError(t, err, "advancing to %s", to)
	}

	order, err := f.engine.CancelOrder(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
	for _, item := range order.Items {
		assert.Equal(t, domain.ItemStatusServed, item.Status)
	}

	assert.True(t, d("0.75").Equal(testutil.StockOf(t, f.db, beef)))
	assert.Zero(t, testutil.CountHistory(t, f.db, beef, "order_cancellation"))
}

func TestAdvanceOrder_InvalidTransition(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)
	ctx := context.Background()

	burger := testutil.SeedProduct(t, f.db, "Water", "1")
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 1})

	_, err := f.engine.AdvanceOrder(ctx, orderID, domain.OrderStatusServed)
	ite, ok := apperrors.IsInvalidTransitionError(err)
	require.True(t, ok, "expected InvalidTransitionError, got %v", err)
	assert.Equal(t, "pending", ite.From)
	assert.Equal(t, "served", ite.To)

	_, err = f.engine.AdvanceOrder(ctx, orderID, domain.OrderStatus("eaten"))
	_, ok = apperrors.IsInvalidTransitionError(err)
	assert.True(t, ok)

	_, err = f.engine.CancelOrder(ctx, orderID)
	require.NoError(t, err)
	_, err = f.engine.ConfirmOrder(ctx, orderID)
	_, ok = apperrors.IsInvalidTransitionError(err)
	assert.True(t, ok)
}

func TestAdvanceOrder_NotFound(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)

	_, err := f.engine.ConfirmOrder(context.Background(), 404)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok, "expected NotFoundError, got %v", err)
}

func TestAdvanceOrder_StampsLifecycleTimes(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)
	ctx := context.Background()

	water := testutil.SeedProduct(t, f.db, "Water", "1")
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: water, Quantity: 1})

	var order *domain.Order
	var err error
	for _, to := range []domain.OrderStatus{
		domain.OrderStatusConfirmed,
		domain.OrderStatusPreparing,
		domain.OrderStatusReady,
		domain.OrderStatusServed,
		domain.OrderStatusCompleted,
	} {
		order, err = f.engine.AdvanceOrder(ctx, orderID, to)
		require.NoError(t, err, "advancing to %s", to)
	}

	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	assert.NotNil(t, order.ServedAt)
	assert.NotNil(t, order.CompletedAt)
	assert.Nil(t, order.CancelledAt)
	assert.Equal(t, domain.ItemStatusServed, order.Items[0].Status)

	assert.Equal(t, []domain.EventType{
		domain.EventOrderConfirmed,
		domain.EventOrderStatusChanged,
		domain.EventOrderStatusChanged,
		domain.EventOrderStatusChanged,
		domain.EventOrderStatusChanged,
	}, f.publisher.types())
}

func TestUpdateItemStatus(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)
	ctx := context.Background()

	water := testutil.SeedProduct(t, f.db, "Water", "1")
	soda := testutil.SeedProduct(t, f.db, "Soda", "2")
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending",
		testutil.OrderLine{ProductID: water, Quantity: 1},
		testutil.OrderLine{ProductID: soda, Quantity: 1},
	)

	order, err := f.engine.AdvanceOrder(ctx, orderID, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	waterItem := order.Items[0].ID

	_, err = f.engine.UpdateItemStatus(ctx, orderID, 9999, domain.ItemStatusReady)
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)

	order, err = f.engine.UpdateItemStatus(ctx, orderID, waterItem, domain.ItemStatusServed)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusServed, order.Items[0].Status)
	assert.Equal(t, domain.ItemStatusPending, order.Items[1].Status)

	_, err = f.engine.UpdateItemStatus(ctx, orderID, waterItem, domain.ItemStatusPreparing)
	_, ok = apperrors.IsInvalidTransitionError(err)
	assert.True(t, ok)

	order, err = f.engine.AdvanceOrder(ctx, orderID, domain.OrderStatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemStatusServed, order.Items[0].Status)
	assert.Equal(t, domain.ItemStatusPreparing, order.Items[1].Status)
}

func TestUpdateItemStatus_RequiresKitchenStatus(t *testing.T) {
	f := newEngineFixture(t, config.PartialCancelRestoreAll)

	water := testutil.SeedProduct(t, f.db, "Water", "1")
	orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: water, Quantity: 1})

	_, err := f.engine.UpdateItemStatus(context.Background(), orderID, 1, domain.ItemStatusServed)
	_, ok := apperrors.IsInvalidTransitionError(err)
	assert.True(t, ok)
}

func TestCancelOrder_PartialCancelPolicy(t *testing.T) {
	tests := []struct {
		name          string
		policy        string
		wantErr       bool
		wantBeefStock string
	}{
		{name: "restore all", policy: config.PartialCancelRestoreAll, wantBeefStock: "1"},
		{name: "reject", policy: config.PartialCancelReject, wantErr: true, wantBeefStock: "0.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, tt.policy)
			ctx := context.Background()

			beef := testutil.SeedIngredient(t, f.db, "Beef", "1")
			burger := testutil.SeedProduct(t, f.db, "Burger", "9.50", testutil.RecipeLine{IngredientID: beef, Quantity: "0.25"})
			orderID := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 2})

			order, err := f.engine.ConfirmOrder(ctx, orderID)
			require.NoError(t, err)
			_, err = f.engine.UpdateItemStatus(ctx, orderID, order.Items[0].ID, domain.ItemStatusServed)
			require.NoError(t, err)

			_, err = f.engine.CancelOrder(ctx, orderID)
			if tt.wantErr {
				_, ok := apperrors.IsInvalidTransitionError(err)
				assert.True(t, ok, "expected InvalidTransitionError, got %v", err)
			} else {
				require.NoError(t, err)
			}

			assert.True(t, d(tt.wantBeefStock).Equal(testutil.StockOf(t, f.db, beef)))
			f.assertReplayMatches(t, beef)
		})
	}
}

func TestConfirmOrder_ConcurrentExhaustion(t *testing.T) {
	confirmConcurrentExhaustion(t, newEngineFixture(t, config.PartialCancelRestoreAll))
}

func TestConfirmOrder_OverlappingIngredients(t *testing.T) {
	t.Run("one order short", func(t *testing.T) {
		confirmOverlappingShort(t, newEngineFixture(t, config.PartialCancelRestoreAll))
	})
	t.Run("both fit", func(t *testing.T) {
		confirmOverlappingBothFit(t, newEngineFixture(t, config.PartialCancelRestoreAll))
	})
}

// confirmConcurrentExhaustion races two confirmations for the last unit of
// one ingredient.
func confirmConcurrentExhaustion(t *testing.T, f *engineFixture) {
	ctx := context.Background()

	beef := testutil.SeedIngredient(t, f.db, "Beef", "1")
	burger := testutil.SeedProduct(t, f.db, "Burger", "9.50", testutil.RecipeLine{IngredientID: beef, Quantity: "1"})
	first := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: burger, Quantity: 1})
	second := testutil.SeedOrder(t, f.db, "ORD-2", "pending", testutil.OrderLine{ProductID: burger, Quantity: 1})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{first, second} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.engine.ConfirmOrder(ctx, id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		_, insufficient := apperrors.IsInsufficientStockError(err)
		_, conflict := apperrors.IsConcurrencyConflictError(err)
		assert.True(t, insufficient || conflict, "unexpected error: %v", err)
	}

	assert.Equal(t, 1, succeeded)
	assert.True(t, testutil.StockOf(t, f.db, beef).IsZero())
	assert.Equal(t, 1, testutil.CountHistory(t, f.db, beef, "order_consumption"))
	f.assertReplayMatches(t, beef)
}

func TestAdvanceOrder_BeginFailure(t *testing.T) {
	engine := NewLifecycleService(
		&mockTransactionManager{
			BeginTxFunc: func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
				return nil, errors.New("connection refused")
			},
		},
		storage.SQLiteDialect{},
		nil, nil, nil, nil, nil, nil,
		&recordingPublisher{},
		zap.NewNop(),
		time.Second,
		config.PartialCancelRestoreAll,
	)

	_, err := engine.ConfirmOrder(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

type mockTransactionManager struct {
	BeginTxFunc func(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func (m *mockTransactionManager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return m.BeginTxFunc(ctx, opts)
}

// confirmConcurrently confirms every order at once and returns the errors in
// the same order.
func (f *engineFixture) confirmConcurrently(orderIDs ...int64) []error {
	var wg sync.WaitGroup
	errs := make([]error, len(orderIDs))
	for i, id := range orderIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = f.engine.ConfirmOrder(context.Background(), id)
		}(i, id)
	}
	wg.Wait()
	return errs
}

// confirmOverlappingShort races two orders that share Egg, listed in
// opposite recipe order, with Egg enough for only one of them.
func confirmOverlappingShort(t *testing.T, f *engineFixture) {
	flour := testutil.SeedIngredient(t, f.db, "Flour", "10")
	egg := testutil.SeedIngredient(t, f.db, "Egg", "3")
	sugar := testutil.SeedIngredient(t, f.db, "Sugar", "10")
	cake := testutil.SeedProduct(t, f.db, "Cake", "15",
		testutil.RecipeLine{IngredientID: flour, Quantity: "1"},
		testutil.RecipeLine{IngredientID: egg, Quantity: "2"},
	)
	meringue := testutil.SeedProduct(t, f.db, "Meringue", "6",
		testutil.RecipeLine{IngredientID: sugar, Quantity: "1"},
		testutil.RecipeLine{IngredientID: egg, Quantity: "2"},
	)
	first := testutil.SeedOrder(t, f.db, "ORD-1", "pending", testutil.OrderLine{ProductID: cake, Quantity: 1})
	second := testutil.SeedOrder(t, f.db, "ORD-2", "pending", testutil.OrderLine{ProductID: meringue, Quantity: 1})

	errs := f.confirmConcurrently(first, second)

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		_, insufficient := apperrors.IsInsufficientStockError(err)
		_, conflict := apperrors.IsConcurrencyConflictError(err)
		assert.True(t, insufficient || conflict, "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	assert.True(t, d("1").Equal(testutil.StockOf(t, f.db, egg)))
	assert.Equal(t, 1, testutil.CountHistory(t, f.db, egg, "order_consumption"))
	consumedFlour := testutil.CountHistory(t, f.db, flour, "order_consumption")
	consumedSugar := testutil.CountHistory(t, f.db, sugar, "order_consumption")
	assert.Equal(t, 1, consumedFlour+consumedSugar, "only the winning order draws its other ingredient")
	f.assertReplayMatches(t, flour, egg, sugar)
}

// confirmOverlappingBothFit races orders that lock the same ingredients in
// opposite recipe order. Ascending lock order keeps them from deadlocking,
// so every confirmation succeeds.
func confirmOverlappingBothFit(t *testing.T, f *engineFixture) {
	flour := testutil.SeedIngredient(t, f.db, "Flour", "20")
	egg := testutil.SeedIngredient(t, f.db, "Egg", "20")
	cake := testutil.SeedProduct(t, f.db, "Cake", "15",
		testutil.RecipeLine{IngredientID: flour, Quantity: "1"},
		testutil.RecipeLine{IngredientID: egg, Quantity: "2"},
	)
	omelette := testutil.SeedProduct(t, f.db, "Omelette", "8",
		testutil.RecipeLine{IngredientID: egg, Quantity: "2"},
		testutil.RecipeLine{IngredientID: flour, Quantity: "1"},
	)

	var orderIDs []int64
	for i := 0; i < 3; i++ {
		orderIDs = append(orderIDs,
			testutil.SeedOrder(t, f.db, fmt.Sprintf("CAKE-%d", i), "pending", testutil.OrderLine{ProductID: cake, Quantity: 1}),
			testutil.SeedOrder(t, f.db, fmt.Sprintf("OMEL-%d", i), "pending", testutil.OrderLine{ProductID: omelette, Quantity: 1}),
		)
	}

	for i, err := range f.confirmConcurrently(orderIDs...) {
		assert.NoError(t, err, "order %d", orderIDs[i])
	}

	assert.True(t, d("14").Equal(testutil.StockOf(t, f.db, flour)))
	assert.True(t, d("8").Equal(testutil.StockOf(t, f.db, egg)))
	f.assertReplayMatches(t, flour, egg)
}
