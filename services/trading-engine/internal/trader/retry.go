package trader

import (
	"context"
	"time"
)

// retry calls fn until it succeeds, it has been retried attempts times or ctx
// ends. The wait starts at backoff and doubles after each failure.
func retry(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	err := fn()
	for i := 0; err != nil && i < attempts; i++ {
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		err = fn()
	}
	return err
}
