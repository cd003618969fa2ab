package order

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/config"
	"comanda/internal/inventory/ledger"
	inventoryrepo "comanda/internal/inventory/repository"
	"comanda/internal/order/controller"
	orderrepo "comanda/internal/order/repository"
	"comanda/internal/order/service"
	"comanda/internal/order/usecase"
	productrepo "comanda/internal/product/repository"
	"comanda/internal/recipe"
	reciperepo "comanda/internal/recipe/repository"
	"comanda/internal/retry"
	"comanda/internal/storage"
)

func NewModule(
	db *sql.DB,
	dialect storage.Dialect,
	cfg *config.Config,
	syncer service.AvailabilitySyncer,
	publisher service.EventPublisher,
	logger *zap.Logger,
) (*controller.OrderController, error) {
	taxRate, err := decimal.NewFromString(cfg.Order.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("parsing ORDER_TAX_RATE: %w", err)
	}

	orderRepo := orderrepo.NewOrderRepository(db, dialect)
	orderItemRepo := orderrepo.NewOrderItemRepository(db)
	productRepo := productrepo.NewProductRepository(db, dialect)
	ingredientRepo := inventoryrepo.NewIngredientRepository(db, dialect)
	historyRepo := inventoryrepo.NewHistoryRepository(db)
	index := recipe.NewIndex(db, reciperepo.NewRecipeRepository(db))

	lifecycle := service.NewLifecycleService(
		db,
		dialect,
		orderRepo,
		orderItemRepo,
		index,
		ledger.New(ingredientRepo, historyRepo, logger),
		historyRepo,
		syncer,
		publisher,
		logger,
		cfg.Order.TxTimeout,
		cfg.Order.PartialCancelPolicy,
	)

	creator := service.NewOrderService(
		db,
		dialect,
		productRepo,
		orderRepo,
		orderItemRepo,
		taxRate,
		logger,
		cfg.Order.TxTimeout,
	)

	uc := usecase.NewOrderUseCase(lifecycle, creator, logger, retry.DefaultPolicy(cfg.Order.MaxRetryAttempts))

	return controller.NewOrderController(uc, logger), nil
}
