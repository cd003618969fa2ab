package dto

type SearchProductsRequest struct {
	ProductIDs []int64 `json:"productIds"`
}

type SearchProductsResponse struct {
	Products []ProductDTO `json:"products"`
	NotFound []int64      `json:"notFound"`
}

// AvailabilityOverrideRequest sets or, with null, clears the operator
// override.
type AvailabilityOverrideRequest struct {
	Override *bool `json:"override"`
}

type ProductDTO struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description"`
	Price                string `json:"price"`
	Category             string `json:"category"`
	IsActive             bool   `json:"isActive"`
	IsAvailable          bool   `json:"isAvailable"`
	AvailabilityOverride *bool  `json:"availabilityOverride"`
	Available            bool   `json:"available"`
}
