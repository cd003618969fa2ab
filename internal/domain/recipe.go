package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

type RecipeLine struct {
	ProductID        int64
	IngredientID     int64
	QuantityRequired decimal.Decimal
}

// Requirement is the consolidated amount of one ingredient an order needs.
type Requirement struct {
	IngredientID int64
	Quantity     decimal.Decimal
}

// ExpandRequirements multiplies every item through its product's recipe and
// sums per ingredient. The result is sorted by ingredient id so callers lock
// rows in a stable order.
func ExpandRequirements(items []OrderItem, recipes map[int64][]RecipeLine) []Requirement {
	totals := make(map[int64]decimal.Decimal)
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		for _, line := range recipes[item.ProductID] {
			totals[line.IngredientID] = totals[line.IngredientID].Add(line.QuantityRequired.Mul(qty))
		}
	}

	reqs := make([]Requirement, 0, len(totals))
	for id, total := range totals {
		if !total.IsPositive() {
			continue
		}
		reqs = append(reqs, Requirement{IngredientID: id, Quantity: total})
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].IngredientID < reqs[j].IngredientID })

	return reqs
}

// RecipeStock is one recipe line joined with its ingredient's current stock.
type RecipeStock struct {
	ProductID    int64
	IngredientID int64
	CurrentStock decimal.Decimal
}

// DeriveAvailability returns, for every product id in products, whether all
// of its recipe ingredients have positive stock. Products without recipe
// lines are always available.
func DeriveAvailability(products []int64, lines []RecipeStock) map[int64]bool {
	result := make(map[int64]bool, len(products))
	for _, id := range products {
		result[id] = true
	}
	for _, line := range lines {
		if _, tracked := result[line.ProductID]; !tracked {
			continue
		}
		if !line.CurrentStock.IsPositive() {
			result[line.ProductID] = false
		}
	}
	return result
}
