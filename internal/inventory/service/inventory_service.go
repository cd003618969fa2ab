package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/inventory/ledger"
	"comanda/internal/storage"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type IngredientRepository interface {
	FindByID(ctx context.Context, id int64) (*domain.Ingredient, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*domain.Ingredient, error)
	FindByName(ctx context.Context, q storage.Querier, name string) (*domain.Ingredient, error)
	FindAll(ctx context.Context) ([]domain.Ingredient, error)
	Insert(ctx context.Context, tx *sql.Tx, ingredient domain.Ingredient) (int64, error)
}

type HistoryRepository interface {
	ListByIngredient(ctx context.Context, ingredientID int64, limit int) ([]domain.LedgerEntry, error)
	ListChain(ctx context.Context, q storage.Querier, ingredientID int64) ([]domain.LedgerEntry, error)
}

type StockLedger interface {
	ApplyDelta(ctx context.Context, tx *sql.Tx, d ledger.Delta) (*domain.LedgerEntry, error)
}

type AvailabilitySyncer interface {
	SyncOrDefer(ctx context.Context, ingredientIDs []int64) []domain.AvailabilityChange
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...domain.Event) error
}

type Adjustment struct {
	IngredientID int64
	Quantity     decimal.Decimal
	Operation    domain.StockOperation
	Actor        string
	Reason       *string
}

type NewIngredient struct {
	Name         string
	Unit         string
	InitialStock decimal.Decimal
	MinimumStock decimal.Decimal
	MaximumStock decimal.Decimal
	UnitCost     decimal.Decimal
	Actor        string
}

// InventoryService covers the stock movements operators make by hand.
// Order-driven movements belong to the order lifecycle and are refused here.
type InventoryService struct {
	db          TransactionManager
	dialect     storage.Dialect
	ingredients IngredientRepository
	history     HistoryRepository
	ledger      StockLedger
	syncer      AvailabilitySyncer
	publisher   EventPublisher
	logger      *zap.Logger
	txTimeout   time.Duration
	now         func() time.Time
}

func NewInventoryService(
	db TransactionManager,
	dialect storage.Dialect,
	ingredients IngredientRepository,
	history HistoryRepository,
	stockLedger StockLedger,
	syncer AvailabilitySyncer,
	publisher EventPublisher,
	logger *zap.Logger,
	txTimeout time.Duration,
) *InventoryService {
	return &InventoryService{
		db:          db,
		dialect:     dialect,
		ingredients: ingredients,
		history:     history,
		ledger:      stockLedger,
		syncer:      syncer,
		publisher:   publisher,
		logger:      logger,
		txTimeout:   txTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// AdjustStock applies a restock, manual adjustment or spoilage in its own
// transaction and then refreshes availability of affected products.
func (s *InventoryService) AdjustStock(ctx context.Context, adj Adjustment) (*domain.LedgerEntry, error) {
	switch adj.Operation {
	case domain.OperationRestock, domain.OperationManualAdjustment, domain.OperationSpoilage:
	default:
		return nil, apperrors.NewValidationError("invalid adjustment", apperrors.ValidationDetail{
			Field:   "operation",
			Message: fmt.Sprintf("operation %q cannot be applied manually", adj.Operation),
		})
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	logger := s.logger.With(
		zap.Int64("ingredientId", adj.IngredientID),
		zap.String("operation", string(adj.Operation)),
	)

	tx, err := s.db.BeginTx(txCtx, s.dialect.TxOptions())
	if err != nil {
		logger.Error("failed to begin transaction", zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "beginning stock adjustment", err)
	}
	defer tx.Rollback()

	entry, err := s.ledger.ApplyDelta(txCtx, tx, ledger.Delta{
		IngredientID: adj.IngredientID,
		Quantity:     adj.Quantity,
		Operation:    adj.Operation,
		Actor:        strings.TrimSpace(adj.Actor),
		Reason:       adj.Reason,
	})
	if err != nil {
		logger.Warn("stock adjustment rejected", zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "applying stock adjustment", err)
	}

	// Already locked by the ledger; re-read for the minimum.
	ingredient, err := s.ingredients.FindByIDForUpdate(txCtx, tx, adj.IngredientID)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "reading adjusted ingredient", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", zap.Error(err))
		return nil, storage.WrapConflict(s.dialect, "committing stock adjustment", err)
	}

	logger.Info("stock adjusted",
		zap.String("quantity", entry.Quantity.String()),
		zap.String("newStock", entry.NewStock.String()),
		zap.String("actor", entry.Actor),
	)

	s.syncer.SyncOrDefer(ctx, []int64{adj.IngredientID})

	change := domain.StockChange{
		IngredientID: entry.IngredientID,
		Operation:    entry.Operation,
		Quantity:     entry.Quantity.String(),
		NewStock:     entry.NewStock.String(),
		LowStock:     ingredient.IsLowStock(),
	}
	event := domain.NewEvent(domain.EventStockAdjusted, "ingredient-"+strconv.FormatInt(entry.IngredientID, 10), change, entry.CreatedAt)
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish stock event", zap.Error(err))
	}

	return entry, nil
}

// History returns the ledger of one ingredient, oldest first. A limit of
// zero or less returns every entry.
func (s *InventoryService) History(ctx context.Context, ingredientID int64, limit int) ([]domain.LedgerEntry, error) {
	if _, err := s.ingredients.FindByID(ctx, ingredientID); err != nil {
		return nil, err
	}
	return s.history.ListByIngredient(ctx, ingredientID, limit)
}

func (s *InventoryService) GetIngredient(ctx context.Context, ingredientID int64) (*domain.Ingredient, error) {
	return s.ingredients.FindByID(ctx, ingredientID)
}

func (s *InventoryService) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.ingredients.FindAll(ctx)
}

// CreateIngredient stores a new ingredient at zero stock and records any
// initial quantity as a restock, so replaying the ledger from zero holds.
func (s *InventoryService) CreateIngredient(ctx context.Context, in NewIngredient) (*domain.Ingredient, error) {
	name := strings.TrimSpace(in.Name)
	var details []apperrors.ValidationDetail
	if name == "" {
		details = append(details, apperrors.ValidationDetail{Field: "name", Message: "name is required"})
	}
	if strings.TrimSpace(in.Unit) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "unit", Message: "unit is required"})
	}
	if in.InitialStock.IsNegative() {
		details = append(details, apperrors.ValidationDetail{Field: "initialStock", Message: "initial stock must not be negative"})
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid ingredient", details...)
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, s.dialect.TxOptions())
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "beginning ingredient creation", err)
	}
	defer tx.Rollback()

	existing, err := s.ingredients.FindByName(txCtx, tx, name)
	if err == nil {
		return nil, apperrors.NewValidationError("invalid ingredient", apperrors.ValidationDetail{
			Field:   "name",
			Message: fmt.Sprintf("ingredient %q already exists with id %d", name, existing.ID),
		})
	}
	if _, notFound := apperrors.IsNotFoundError(err); !notFound {
		return nil, storage.WrapConflict(s.dialect, "checking ingredient name", err)
	}

	now := s.now()
	ingredient := domain.Ingredient{
		Name:         name,
		Unit:         strings.TrimSpace(in.Unit),
		MinimumStock: in.MinimumStock,
		MaximumStock: in.MaximumStock,
		UnitCost:     in.UnitCost,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.ingredients.Insert(txCtx, tx, ingredient)
	if err != nil {
		return nil, storage.WrapConflict(s.dialect, "inserting ingredient", err)
	}
	ingredient.ID = id

	if in.InitialStock.IsPositive() {
		reason := "initial stock"
		entry, err := s.ledger.ApplyDelta(txCtx, tx, ledger.Delta{
			IngredientID: id,
			Quantity:     in.InitialStock,
			Operation:    domain.OperationRestock,
			Actor:        in.Actor,
			Reason:       &reason,
		})
		if err != nil {
			return nil, storage.WrapConflict(s.dialect, "recording initial stock", err)
		}
		ingredient.CurrentStock = entry.NewStock
	}

	if err := tx.Commit(); err != nil {
		return nil, storage.WrapConflict(s.dialect, "committing ingredient creation", err)
	}

	s.logger.Info("ingredient created",
		zap.Int64("ingredientId", id),
		zap.String("ingredient", name),
		zap.String("stock", ingredient.CurrentStock.String()),
	)

	return &ingredient, nil
}
