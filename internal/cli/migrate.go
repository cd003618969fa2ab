package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"comanda/internal/storage"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the schema in the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			if err := storage.Migrate(cmd.Context(), a.db, a.dialect); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "schema applied (%s)\n", a.dialect.Name())
			return nil
		},
	}
}
