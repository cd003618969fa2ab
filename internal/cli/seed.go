package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"comanda/internal/catalog"
	"comanda/internal/inventory/ledger"
	inventoryrepo "comanda/internal/inventory/repository"
	productrepo "comanda/internal/product/repository"
	reciperepo "comanda/internal/recipe/repository"
)

func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <catalog.yaml>",
		Short: "Load ingredients, products and recipes from a YAML catalog",
		Long: `Load a YAML catalog into the store.

New ingredients receive their stock through restock ledger entries.
Ingredients that already exist keep their current stock. Products are
upserted by name and their recipes replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := catalog.Load(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			ingredients := inventoryrepo.NewIngredientRepository(a.db, a.dialect)
			history := inventoryrepo.NewHistoryRepository(a.db)

			seeder := catalog.NewSeeder(
				a.db,
				a.dialect,
				ingredients,
				productrepo.NewProductRepository(a.db, a.dialect),
				reciperepo.NewRecipeRepository(a.db),
				ledger.New(ingredients, history, a.logger),
				a.productModule().Synchronizer,
				a.logger,
			)

			result, err := seeder.Seed(cmd.Context(), c)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"ingredients: %d created, %d kept\nproducts: %d created, %d updated\navailability changes: %d\n",
				result.IngredientsCreated, result.IngredientsKept,
				result.ProductsCreated, result.ProductsUpdated,
				result.AvailabilityFlips,
			)
			return nil
		},
	}
}
