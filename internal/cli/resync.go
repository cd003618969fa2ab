package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewResyncCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Recompute availability for the whole catalog and drain the backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.close()

			syncer := a.productModule().Synchronizer
			changes, err := syncer.SyncAll(cmd.Context())
			if err != nil {
				return err
			}

			drained, err := syncer.Drain(cmd.Context(), a.cfg.Resync.BatchSize)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range changes {
				fmt.Fprintf(out, "product %d available=%t\n", c.ProductID, c.Available)
			}
			fmt.Fprintf(out, "%d products changed, %d backlog ingredients drained\n", len(changes), drained)
			return nil
		},
	}
}
