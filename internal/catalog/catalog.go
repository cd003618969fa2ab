package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.yaml.in/yaml/v3"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

// Catalog is the YAML seed file layout. Quantities are strings so they keep
// their exact decimal value.
type Catalog struct {
	Ingredients []IngredientSpec `yaml:"ingredients"`
	Products    []ProductSpec    `yaml:"products"`
}

type IngredientSpec struct {
	Name     string `yaml:"name"`
	Unit     string `yaml:"unit"`
	Stock    string `yaml:"stock"`
	Minimum  string `yaml:"minimum"`
	Maximum  string `yaml:"maximum"`
	UnitCost string `yaml:"unitCost"`
}

type ProductSpec struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Price       string       `yaml:"price"`
	Category    string       `yaml:"category"`
	Inactive    bool         `yaml:"inactive"`
	Recipe      []RecipeSpec `yaml:"recipe"`
}

type RecipeSpec struct {
	Ingredient string `yaml:"ingredient"`
	Quantity   string `yaml:"quantity"`
}

func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// amount parses an optional decimal; empty means zero.
func amount(raw string) (decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(raw))
}

func (c *Catalog) validate() error {
	var details []apperrors.ValidationDetail
	add := func(field, format string, args ...any) {
		details = append(details, apperrors.ValidationDetail{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	ingredients := make(map[string]struct{}, len(c.Ingredients))
	for i, ing := range c.Ingredients {
		field := fmt.Sprintf("ingredients[%d]", i)
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			add(field+".name", "name is required")
		}
		if _, dup := ingredients[name]; dup {
			add(field+".name", "duplicate ingredient %q", name)
		}
		ingredients[name] = struct{}{}
		if strings.TrimSpace(ing.Unit) == "" {
			add(field+".unit", "unit is required")
		}

		for key, raw := range map[string]string{"stock": ing.Stock, "minimum": ing.Minimum, "maximum": ing.Maximum, "unitCost": ing.UnitCost} {
			v, err := amount(raw)
			switch {
			case err != nil:
				add(field+"."+key, "%q is not a decimal", raw)
			case v.IsNegative():
				add(field+"."+key, "must not be negative")
			case !domain.FitsScale(v):
				add(field+"."+key, "at most %d decimal places", domain.QuantityScale)
			}
		}
	}

	products := make(map[string]struct{}, len(c.Products))
	for i, p := range c.Products {
		field := fmt.Sprintf("products[%d]", i)
		name := strings.TrimSpace(p.Name)
		if name == "" {
			add(field+".name", "name is required")
		}
		if _, dup := products[name]; dup {
			add(field+".name", "duplicate product %q", name)
		}
		products[name] = struct{}{}

		if price, err := amount(p.Price); err != nil || price.IsNegative() {
			add(field+".price", "%q is not a valid price", p.Price)
		}

		used := make(map[string]struct{}, len(p.Recipe))
		for j, line := range p.Recipe {
			lineField := fmt.Sprintf("%s.recipe[%d]", field, j)
			ingredient := strings.TrimSpace(line.Ingredient)
			if _, ok := ingredients[ingredient]; !ok {
				add(lineField+".ingredient", "unknown ingredient %q", line.Ingredient)
			}
			if _, dup := used[ingredient]; dup {
				add(lineField+".ingredient", "ingredient %q listed twice", ingredient)
			}
			used[ingredient] = struct{}{}

			qty, err := amount(line.Quantity)
			if err != nil || !qty.IsPositive() || !domain.FitsScale(qty) {
				add(lineField+".quantity", "%q must be a positive decimal with at most %d places", line.Quantity, domain.QuantityScale)
			}
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid catalog", details...)
	}
	return nil
}
