package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Drainer interface {
	Drain(ctx context.Context, batch int) (int, error)
}

// ResyncWorker periodically drains the availability backlog left by syncs
// that failed after their stock change had committed.
type ResyncWorker struct {
	drainer  Drainer
	interval time.Duration
	batch    int
	logger   *zap.Logger
}

func NewResyncWorker(drainer Drainer, interval time.Duration, batch int, logger *zap.Logger) *ResyncWorker {
	if batch < 1 {
		batch = 1
	}
	return &ResyncWorker{
		drainer:  drainer,
		interval: interval,
		batch:    batch,
		logger:   logger,
	}
}

// Run blocks until ctx is done.
func (w *ResyncWorker) Run(ctx context.Context) {
	w.logger.Info("starting availability resync worker",
		zap.Duration("interval", w.interval),
		zap.Int("batch", w.batch),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-ctx.Done():
			w.logger.Info("availability resync worker stopped")
			return
		}
	}
}

// RunOnce drains batches until the backlog is empty or a drain fails.
func (w *ResyncWorker) RunOnce(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := w.drainer.Drain(ctx, w.batch)
		if err != nil {
			w.logger.Error("availability resync failed", zap.Error(err))
			break
		}
		total += n
		if n < w.batch {
			break
		}
	}

	if total > 0 {
		w.logger.Info("availability backlog drained", zap.Int("ingredients", total))
	}
	return total
}
