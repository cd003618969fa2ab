package inventory

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/config"
	"comanda/internal/inventory/controller"
	"comanda/internal/inventory/ledger"
	"comanda/internal/inventory/repository"
	"comanda/internal/inventory/service"
	"comanda/internal/inventory/usecase"
	"comanda/internal/retry"
	"comanda/internal/storage"
)

type Module struct {
	Controller *controller.InventoryController
	Service    *service.InventoryService
}

func NewModule(
	db *sql.DB,
	dialect storage.Dialect,
	cfg *config.Config,
	syncer service.AvailabilitySyncer,
	publisher service.EventPublisher,
	logger *zap.Logger,
) *Module {
	ingredients := repository.NewIngredientRepository(db, dialect)
	history := repository.NewHistoryRepository(db)

	svc := service.NewInventoryService(
		db,
		dialect,
		ingredients,
		history,
		ledger.New(ingredients, history, logger),
		syncer,
		publisher,
		logger,
		cfg.Order.TxTimeout,
	)

	uc := usecase.NewAdjustStockUseCase(svc, logger, retry.DefaultPolicy(cfg.Order.MaxRetryAttempts))

	return &Module{
		Controller: controller.NewInventoryController(uc, svc, logger),
		Service:    svc,
	}
}
