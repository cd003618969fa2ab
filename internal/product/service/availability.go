package service

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/storage"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type AvailabilityRepository interface {
	FindAllIDs(ctx context.Context, q storage.Querier) ([]int64, error)
	FindAvailabilityForUpdate(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]bool, error)
	UpdateAvailability(ctx context.Context, q storage.Querier, id int64, available bool, updatedAt time.Time) error
}

type RecipeIndex interface {
	ProductsUsing(ctx context.Context, q storage.Querier, ingredientIDs []int64) ([]int64, error)
	IngredientsForMany(ctx context.Context, q storage.Querier, productIDs []int64) (map[int64][]domain.RecipeLine, error)
}

type StockLocker interface {
	LockStocks(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]decimal.Decimal, error)
}

// ResyncBacklog holds ingredient ids awaiting an availability pass. Peek
// leaves ids in place; only Ack removes them.
type ResyncBacklog interface {
	Push(ctx context.Context, ingredientIDs ...int64) error
	Peek(ctx context.Context, n int) ([]int64, error)
	Ack(ctx context.Context, ingredientIDs ...int64) error
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

// AvailabilitySynchronizer keeps products.is_available equal to what the
// recipes and current stock imply. It always recomputes from committed rows
// and never caches.
type AvailabilitySynchronizer struct {
	db        TransactionManager
	dialect   storage.Dialect
	products  AvailabilityRepository
	recipes   RecipeIndex
	stocks    StockLocker
	backlog   ResyncBacklog
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewAvailabilitySynchronizer(
	db TransactionManager,
	dialect storage.Dialect,
	products AvailabilityRepository,
	recipes RecipeIndex,
	stocks StockLocker,
	backlog ResyncBacklog,
	publisher EventPublisher,
	logger *zap.Logger,
) *AvailabilitySynchronizer {
	return &AvailabilitySynchronizer{
		db:        db,
		dialect:   dialect,
		products:  products,
		recipes:   recipes,
		stocks:    stocks,
		backlog:   backlog,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sync recomputes every product whose recipe references one of the
// ingredients and returns the products whose flag changed.
func (s *AvailabilitySynchronizer) Sync(ctx context.Context, ingredientIDs []int64) ([]domain.AvailabilityChange, error) {
	if len(ingredientIDs) == 0 {
		return nil, nil
	}

	return s.run(ctx, "syncing availability", func(tx *sql.Tx) ([]int64, error) {
		return s.recipes.ProductsUsing(ctx, tx, ingredientIDs)
	})
}

// SyncAll recomputes the whole catalog.
func (s *AvailabilitySynchronizer) SyncAll(ctx context.Context) ([]domain.AvailabilityChange, error) {
	return s.run(ctx, "syncing catalog availability", func(tx *sql.Tx) ([]int64, error) {
		return s.products.FindAllIDs(ctx, tx)
	})
}

// SyncOrDefer runs Sync and, when it fails, queues the ingredients on the
// resync backlog instead of failing the caller. The caller's own change has
// already committed at this point.
func (s *AvailabilitySynchronizer) SyncOrDefer(ctx context.Context, ingredientIDs []int64) []domain.AvailabilityChange {
	changes, err := s.Sync(ctx, ingredientIDs)
	if err == nil {
		return changes
	}

	s.logger.Warn("availability sync failed, deferring", zap.Int64s("ingredientIds", ingredientIDs), zap.Error(err))
	if pushErr := s.backlog.Push(context.WithoutCancel(ctx), ingredientIDs...); pushErr != nil {
		s.logger.Error("failed to queue ingredients for resync", zap.Int64s("ingredientIds", ingredientIDs), zap.Error(pushErr))
	}
	return nil
}

// Drain syncs up to batch ingredient ids from the backlog and acks them
// once the sync has committed. Ids whose sync fails stay queued.
func (s *AvailabilitySynchronizer) Drain(ctx context.Context, batch int) (int, error) {
	ids, err := s.backlog.Peek(ctx, batch)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if _, err := s.Sync(ctx, ids); err != nil {
		s.logger.Warn("backlog sync failed, keeping ingredients queued", zap.Int64s("ingredientIds", ids), zap.Error(err))
		return 0, err
	}

	if err := s.backlog.Ack(context.WithoutCancel(ctx), ids...); err != nil {
		return 0, err
	}

	return len(ids), nil
}

func (s *AvailabilitySynchronizer) run(
	ctx context.Context,
	op string,
	selectProducts func(tx *sql.Tx) ([]int64, error),
) ([]domain.AvailabilityChange, error) {
	tx, err := s.db.BeginTx(ctx, s.dialect.TxOptions())
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, op, err)
	}
	defer tx.Rollback()

	productIDs, err := selectProducts(tx)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, op, err)
	}

	changes, err := s.reconcile(ctx, tx, productIDs)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.WrapConflict(s.dialect, op, err)
	}

	if len(changes) > 0 {
		s.logger.Info("product availability changed", zap.Int("changed", len(changes)), zap.Int("checked", len(productIDs)))
		s.publish(ctx, changes)
	}

	return changes, nil
}

func (s *AvailabilitySynchronizer) reconcile(ctx context.Context, tx *sql.Tx, productIDs []int64) ([]domain.AvailabilityChange, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	recipes, err := s.recipes.IngredientsForMany(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	var ingredientIDs []int64
	for _, lines := range recipes {
		for _, line := range lines {
			if _, ok := seen[line.IngredientID]; ok {
				continue
			}
			seen[line.IngredientID] = struct{}{}
			ingredientIDs = append(ingredientIDs, line.IngredientID)
		}
	}
	sort.Slice(ingredientIDs, func(i, j int) bool { return ingredientIDs[i] < ingredientIDs[j] })

	stocks, err := s.stocks.LockStocks(ctx, tx, ingredientIDs)
	if err != nil {
		return nil, err
	}

	var lines []domain.RecipeStock
	for productID, recipe := range recipes {
		for _, line := range recipe {
			lines = append(lines, domain.RecipeStock{
				ProductID:    productID,
				IngredientID: line.IngredientID,
				CurrentStock: stocks[line.IngredientID],
			})
		}
	}
	derived := domain.DeriveAvailability(productIDs, lines)

	current, err := s.products.FindAvailabilityForUpdate(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var changes []domain.AvailabilityChange
	for _, id := range productIDs {
		stored, ok := current[id]
		if !ok || stored == derived[id] {
			continue
		}
		if err := s.products.UpdateAvailability(ctx, tx, id, derived[id], now); err != nil {
			return nil, err
		}
		changes = append(changes, domain.AvailabilityChange{ProductID: id, Available: derived[id]})
	}

	return changes, nil
}

func (s *AvailabilitySynchronizer) publish(ctx context.Context, changes []domain.AvailabilityChange) {
	now := s.now()
	events := make([]domain.Event, 0, len(changes))
	for _, c := range changes {
		events = append(events, domain.NewEvent(domain.EventAvailabilityChanged, "product-"+strconv.FormatInt(c.ProductID, 10), c, now))
	}

	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish availability events", zap.Error(err))
	}
}
