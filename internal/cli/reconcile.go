package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"comanda/internal/inventory/service"
)

var ErrLedgerMismatch = errors.New("ingredient ledger does not reconcile")

func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Replay every ingredient ledger and compare it with current stock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			inventory := a.inventoryModule(a.productModule().Synchronizer)
			report, err := inventory.Service.Reconcile(cmd.Context())
			if err != nil {
				return err
			}

			if err := service.WriteReport(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if report.Mismatches() > 0 {
				return ErrLedgerMismatch
			}
			return nil
		},
	}
}
