package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "comanda/internal/errors"
)

func conflict() error {
	return apperrors.NewConcurrencyConflictError("confirming order", errors.New("deadlock"))
}

func testPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond}
}

func TestDo_SucceedsAfterConflicts(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), testPolicy(3), zap.NewNop(), "confirm", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", conflict()
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), testPolicy(3), zap.NewNop(), "confirm", func(ctx context.Context) (int, error) {
		calls++
		return 0, conflict()
	})

	assert.Equal(t, 3, calls)
	cce, ok := apperrors.IsConcurrencyConflictError(err)
	require.True(t, ok)
	assert.Contains(t, cce.Error(), "max retries exceeded")
}

func TestDo_DoesNotRetryOtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "insufficient stock", err: apperrors.NewInsufficientStockError(1, "Beef", decimal.Zero, decimal.Zero)},
		{name: "invalid transition", err: apperrors.NewInvalidTransitionError(1, "completed", "cancelled")},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Do(context.Background(), testPolicy(5), zap.NewNop(), "confirm", func(ctx context.Context) (int, error) {
				calls++
				return 0, tt.err
			})

			assert.Equal(t, 1, calls)
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestDo_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour}, zap.NewNop(), "confirm", func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, conflict()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorContains(t, err, "confirm: abandoned after 1 attempts")
	assert.Equal(t, 1, calls)
}

func TestDo_DeadlineDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Do(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour}, zap.NewNop(), "adjust", func(ctx context.Context) (int, error) {
		return 0, conflict()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, isConflict := apperrors.IsConcurrencyConflictError(err)
	assert.False(t, isConflict)
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), testPolicy(0), zap.NewNop(), "confirm", func(ctx context.Context) (int, error) {
		calls++
		return 1, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
