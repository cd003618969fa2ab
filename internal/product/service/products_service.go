package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/storage"
)

type Repository interface {
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindByIDs(ctx context.Context, q storage.Querier, ids []int64) ([]domain.Product, error)
	SetOverride(ctx context.Context, id int64, override *bool, updatedAt time.Time) error
}

type ProductService struct {
	db        storage.Querier
	repo      Repository
	publisher EventPublisher
	logger    *zap.Logger
}

func NewProductService(db storage.Querier, repo Repository, publisher EventPublisher, logger *zap.Logger) *ProductService {
	return &ProductService{
		db:        db,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *ProductService) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, []int64, error) {
	found, err := s.repo.FindByIDs(ctx, s.db, ids)
	if err != nil {
		return nil, nil, err
	}

	foundSet := make(map[int64]struct{}, len(found))
	for _, p := range found {
		foundSet[p.ID] = struct{}{}
	}

	var notFoundIDs []int64
	for _, id := range ids {
		if _, ok := foundSet[id]; !ok {
			notFoundIDs = append(notFoundIDs, id)
		}
	}

	return found, notFoundIDs, nil
}

// SetAvailabilityOverride records an operator decision on top of the derived
// flag. A nil override hands control back to the synchronizer.
func (s *ProductService) SetAvailabilityOverride(ctx context.Context, productID int64, override *bool) (*domain.Product, error) {
	before, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetOverride(ctx, productID, override, time.Now().UTC()); err != nil {
		return nil, err
	}

	after, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("availability override updated",
		zap.Int64("productId", productID),
		zap.Boolp("override", override),
		zap.Bool("effective", after.EffectiveAvailable()),
	)

	if before.EffectiveAvailable() != after.EffectiveAvailable() {
		change := domain.AvailabilityChange{ProductID: productID, Available: after.EffectiveAvailable()}
		event := domain.NewEvent(domain.EventAvailabilityChanged, "product-"+strconv.FormatInt(productID, 10), change, time.Now())
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish availability event", zap.Error(err))
		}
	}

	return after, nil
}
