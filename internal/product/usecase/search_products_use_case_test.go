package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/domain"
	"comanda/internal/dto"
)

type mockService struct {
	GetProductsByIDsFunc        func(ctx context.Context, ids []int64) ([]domain.Product, []int64, error)
	SetAvailabilityOverrideFunc func(ctx context.Context, productID int64, override *bool) (*domain.Product, error)
}

func (m *mockService) GetProductsByIDs(ctx context.Context, ids []int64) ([]domain.Product, []int64, error) {
	return m.GetProductsByIDsFunc(ctx, ids)
}

func (m *mockService) SetAvailabilityOverride(ctx context.Context, productID int64, override *bool) (*domain.Product, error) {
	return m.SetAvailabilityOverrideFunc(ctx, productID, override)
}

func TestSearchProducts(t *testing.T) {
	svc := &mockService{
		GetProductsByIDsFunc: func(ctx context.Context, ids []int64) ([]domain.Product, []int64, error) {
			assert.Equal(t, []int64{1, 2}, ids)
			return []domain.Product{
				{ID: 1, Name: "Burger", Price: decimal.RequireFromString("9.5"), IsActive: true, IsAvailable: true},
			}, []int64{2}, nil
		},
	}

	resp, err := NewSearchUseCase(svc).SearchProducts(context.Background(), dto.SearchProductsRequest{ProductIDs: []int64{1, 2}})
	require.NoError(t, err)

	require.Len(t, resp.Products, 1)
	assert.Equal(t, "9.50", resp.Products[0].Price)
	assert.True(t, resp.Products[0].Available)
	assert.Equal(t, []int64{2}, resp.NotFound)
}

func TestSearchProducts_NotFoundNeverNil(t *testing.T) {
	svc := &mockService{
		GetProductsByIDsFunc: func(ctx context.Context, ids []int64) ([]domain.Product, []int64, error) {
			return nil, nil, nil
		},
	}

	resp, err := NewSearchUseCase(svc).SearchProducts(context.Background(), dto.SearchProductsRequest{ProductIDs: []int64{1}})
	require.NoError(t, err)
	assert.NotNil(t, resp.NotFound)
	assert.NotNil(t, resp.Products)
}

func TestSearchProducts_Error(t *testing.T) {
	svc := &mockService{
		GetProductsByIDsFunc: func(ctx context.Context, ids []int64) ([]domain.Product, []int64, error) {
			return nil, nil, errors.New("db down")
		},
	}

	_, err := NewSearchUseCase(svc).SearchProducts(context.Background(), dto.SearchProductsRequest{ProductIDs: []int64{1}})
	assert.EqualError(t, err, "db down")
}

func TestSetAvailabilityOverride(t *testing.T) {
	off := false
	svc := &mockService{
		SetAvailabilityOverrideFunc: func(ctx context.Context, productID int64, override *bool) (*domain.Product, error) {
			return &domain.Product{ID: productID, Price: decimal.Zero, IsActive: true, IsAvailable: true, AvailabilityOverride: override}, nil
		},
	}

	out, err := NewSearchUseCase(svc).SetAvailabilityOverride(context.Background(), 3, &off)
	require.NoError(t, err)
	assert.True(t, out.IsAvailable)
	assert.False(t, out.Available)
	require.NotNil(t, out.AvailabilityOverride)
	assert.False(t, *out.AvailabilityOverride)
}
