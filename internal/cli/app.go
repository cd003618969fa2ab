package cli

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"comanda/internal/config"
	"comanda/internal/infrastructure/kafka"
	"comanda/internal/infrastructure/logger"
	"comanda/internal/infrastructure/memory"
	"comanda/internal/infrastructure/mysql"
	"comanda/internal/infrastructure/redis"
	"comanda/internal/infrastructure/sqlite"
	"comanda/internal/inventory"
	"comanda/internal/product"
	"comanda/internal/product/service"
	"comanda/internal/storage"
)

type eventPublisher interface {
	service.EventPublisher
	Close() error
}

// app holds what every command needs: config, logger, database and the
// shared availability plumbing.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sql.DB
	dialect   storage.Dialect
	backlog   service.ResyncBacklog
	publisher eventPublisher
	closers   []func() error
}

func newApp(ctx context.Context, opts *RootOptions) (*app, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	zapLogger, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	a := &app{cfg: cfg, logger: zapLogger}
	a.closers = append(a.closers, func() error {
		_ = zapLogger.Sync()
		return nil
	})

	if err := a.openDatabase(ctx); err != nil {
		a.close()
		return nil, err
	}

	if err := a.openBacklog(ctx); err != nil {
		a.close()
		return nil, err
	}

	if cfg.Kafka.Enabled {
		a.publisher = kafka.NewEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		zapLogger.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		a.publisher = kafka.NopPublisher{}
	}
	a.closers = append(a.closers, a.publisher.Close)

	return a, nil
}

func (a *app) openDatabase(ctx context.Context) error {
	dialect, err := storage.DialectFor(a.cfg.Database.Driver)
	if err != nil {
		return err
	}

	var db *sql.DB
	switch dialect.(type) {
	case storage.SQLiteDialect:
		db, err = sqlite.NewConnection(ctx, a.cfg.Database)
	default:
		db, err = mysql.NewConnection(ctx, a.cfg.Database)
	}
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	a.db = db
	a.dialect = dialect
	a.closers = append(a.closers, db.Close)
	a.logger.Info("database connected", zap.String("driver", dialect.Name()))
	return nil
}

func (a *app) openBacklog(ctx context.Context) error {
	if !a.cfg.Redis.Enabled {
		a.backlog = memory.NewResyncBacklog()
		return nil
	}

	client, err := redis.NewClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return err
	}

	a.backlog = redis.NewResyncBacklog(client, a.cfg.Redis.Key, a.logger)
	a.closers = append(a.closers, client.Close)
	a.logger.Info("resync backlog on redis", zap.String("addr", a.cfg.Redis.Addr), zap.String("key", a.cfg.Redis.Key))
	return nil
}

func (a *app) productModule() *product.Module {
	return product.NewModule(a.db, a.dialect, a.backlog, a.publisher, a.logger)
}

func (a *app) inventoryModule(syncer *service.AvailabilitySynchronizer) *inventory.Module {
	return inventory.NewModule(a.db, a.dialect, a.cfg, syncer, a.publisher, a.logger)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("closing resource", zap.Error(err))
		}
	}
}
