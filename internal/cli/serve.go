package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"comanda/internal/order"
	"comanda/internal/product/worker"
	"comanda/internal/server"
	"comanda/internal/storage"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the availability resync worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply the schema before serving")

	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, migrate bool) error {
	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	if migrate {
		if err := storage.Migrate(ctx, a.db, a.dialect); err != nil {
			return err
		}
	}

	products := a.productModule()
	inventory := a.inventoryModule(products.Synchronizer)
	orders, err := order.NewModule(a.db, a.dialect, a.cfg, products.Synchronizer, a.publisher, a.logger)
	if err != nil {
		return err
	}

	router := server.NewRouter(server.Routes{
		Orders:      orders,
		Ingredients: inventory.Controller,
		Products:    products.Controller,
	}, a.logger)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	resync := worker.NewResyncWorker(products.Synchronizer, a.cfg.Resync.Interval, a.cfg.Resync.BatchSize, a.logger)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		resync.Run(workerCtx)
	}()

	srvErr := server.New(a.cfg.Server.Port, router, a.logger).Run(ctx)
	if srvErr != nil {
		a.logger.Error("server error", zap.Error(srvErr))
	}
	cancelWorker()
	<-workerDone
	return srvErr
}
