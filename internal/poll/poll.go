package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jgivc/rinupdate/internal/common"
)

type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Until calls fn until it succeeds. Results wrapping common.ErrNotFound are
// retried every p.Interval, any other error is returned at once. After
// p.MaxAttempts misses it returns common.ErrTimeout.
func Until[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	var lastErr error
	for n := 0; n < attempts; n++ {
		if n > 0 {
			timer.Reset(p.Interval)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-timer.C:
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		if !errors.Is(err, common.ErrNotFound) {
			return zero, err
		}

		lastErr = err
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", common.ErrTimeout, attempts, lastErr)
}
