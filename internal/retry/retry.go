package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/bassimeledath/aristo-bites/internal/config"
)

// Do runs fn up to policy.MaxAttempts times with a fixed policy.Delay
// between attempts. It returns nil on the first success, the last error
// wrapped with the attempt count once the budget is spent, or the context
// error if ctx ends while waiting to retry. This covers transient call
// failures; status polling of async jobs is a separate mechanism.
func Do(ctx context.Context, policy config.RetryPolicy, op string, fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(policy.Delay):
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}
