package usecase

import (
	"context"

	"comanda/internal/domain"
	"comanda/internal/dto"
)

type Service interface {
	GetProductsByIDs(ctx context.Context, ids []int64) (found []domain.Product, notFoundIDs []int64, err error)
	SetAvailabilityOverride(ctx context.Context, productID int64, override *bool) (*domain.Product, error)
}

type SearchUseCase struct {
	service Service
}

func NewSearchUseCase(service Service) *SearchUseCase {
	return &SearchUseCase{service: service}
}

func (uc *SearchUseCase) SearchProducts(ctx context.Context, req dto.SearchProductsRequest) (*dto.SearchProductsResponse, error) {
	found, notFoundIDs, err := uc.service.GetProductsByIDs(ctx, req.ProductIDs)
	if err != nil {
		return nil, err
	}

	products := make([]dto.ProductDTO, 0, len(found))
	for _, p := range found {
		products = append(products, NewProductDTO(p))
	}

	if notFoundIDs == nil {
		notFoundIDs = []int64{}
	}

	return &dto.SearchProductsResponse{
		Products: products,
		NotFound: notFoundIDs,
	}, nil
}

func (uc *SearchUseCase) SetAvailabilityOverride(ctx context.Context, productID int64, override *bool) (*dto.ProductDTO, error) {
	p, err := uc.service.SetAvailabilityOverride(ctx, productID, override)
	if err != nil {
		return nil, err
	}
	out := NewProductDTO(*p)
	return &out, nil
}

func NewProductDTO(p domain.Product) dto.ProductDTO {
	return dto.ProductDTO{
		ID:                   p.ID,
		Name:                 p.Name,
		Description:          p.Description,
		Price:                p.Price.StringFixed(2),
		Category:             p.Category,
		IsActive:             p.IsActive,
		IsAvailable:          p.IsAvailable,
		AvailabilityOverride: p.AvailabilityOverride,
		Available:            p.Orderable(),
	}
}
