package persistence

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// retry calls fn until it succeeds, attempts run out or ctx ends. The delay
// doubles after every failure.
func retry(ctx context.Context, attempts int, delay time.Duration, logger *zap.Logger, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		logger.Info("dependency not ready, retrying",
			zap.Int("attempt", i),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
