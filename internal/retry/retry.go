package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	apperrors "comanda/internal/errors"
)

// Policy bounds how often an operation aborted by a concurrency conflict is
// run again from scratch.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

func DefaultPolicy(maxAttempts int) Policy {
	return Policy{MaxAttempts: maxAttempts, BaseDelay: 50 * time.Millisecond}
}

// backoff doubles per attempt with ±20% jitter.
func (p Policy) backoff(attempt int) time.Duration {
	base := p.BaseDelay << (attempt - 1)
	jitter := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(base) * jitter)
}

// Do runs fn until it succeeds, fails with anything other than a
// ConcurrencyConflictError, or the attempts run out. Waiting between
// attempts stops early when ctx is done.
func Do[T any](ctx context.Context, p Policy, logger *zap.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if _, ok := apperrors.IsConcurrencyConflictError(err); !ok {
			return zero, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		wait := p.backoff(attempt)
		logger.Warn("concurrency conflict, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt),
			zap.Int("maxAttempts", attempts),
			zap.Duration("backoff", wait),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Warn("retry abandoned", zap.String("operation", op), zap.Int("attempt", attempt), zap.Error(ctx.Err()))
			return zero, fmt.Errorf("%s: abandoned after %d attempts: %w", op, attempt, ctx.Err())
		case <-timer.C:
		}
	}

	logger.Error("retries exhausted", zap.String("operation", op), zap.Int("attempts", attempts), zap.Error(lastErr))
	return zero, apperrors.NewConcurrencyConflictError(op+": max retries exceeded", lastErr)
}
