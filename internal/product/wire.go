package product

import (
	"database/sql"

	"go.uber.org/zap"

	inventoryrepo "comanda/internal/inventory/repository"
	"comanda/internal/product/controller"
	"comanda/internal/product/repository"
	"comanda/internal/product/service"
	"comanda/internal/product/usecase"
	"comanda/internal/recipe"
	reciperepo "comanda/internal/recipe/repository"
	"comanda/internal/storage"
)

type Module struct {
	Controller   *controller.Controller
	Synchronizer *service.AvailabilitySynchronizer
}

func NewModule(
	db *sql.DB,
	dialect storage.Dialect,
	backlog service.ResyncBacklog,
	publisher service.EventPublisher,
	logger *zap.Logger,
) *Module {
	repo := repository.NewProductRepository(db, dialect)
	index := recipe.NewIndex(db, reciperepo.NewRecipeRepository(db))
	ingredients := inventoryrepo.NewIngredientRepository(db, dialect)

	syncer := service.NewAvailabilitySynchronizer(db, dialect, repo, index, ingredients, backlog, publisher, logger)
	svc := service.NewProductService(db, repo, publisher, logger)
	uc := usecase.NewSearchUseCase(svc)

	return &Module{
		Controller:   controller.NewController(uc, logger),
		Synchronizer: syncer,
	}
}
