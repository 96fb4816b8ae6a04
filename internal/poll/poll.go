// Package poll provides a single "wait until a condition holds or a deadline
// passes" primitive shared by every readiness wait of an export job.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Until when the condition did not hold before the
// timeout elapsed. It wraps the last condition error, if any.
var ErrTimeout = errors.New("condition not met before timeout")

// DefaultInterval is used when Until receives a non-positive interval.
const DefaultInterval = 200 * time.Millisecond

// Condition reports whether the awaited state has been reached.
// A returned error is treated as transient: polling continues and the error is
// reported only if the deadline passes.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond immediately and then every interval until it returns
// true, the timeout elapses, or ctx is canceled.
//
// A timeout yields an error wrapping ErrTimeout. Cancellation of the parent
// context yields the parent's error instead, so callers can tell a degraded
// wait from an aborted run. A non-positive timeout means "check once".
func Until(ctx context.Context, interval, timeout time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	waitCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastErr error
	for {
		ok, err := cond(waitCtx)
		if ok && err == nil {
			return nil
		}
		if err != nil {
			lastErr = err
		}

		if timeout <= 0 {
			return timeoutError(timeout, lastErr)
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return timeoutError(timeout, lastErr)
		}
	}
}

// Sleep pauses for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func timeoutError(timeout time.Duration, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%w after %v: %w", ErrTimeout, timeout, lastErr)
	}
	return fmt.Errorf("%w after %v", ErrTimeout, timeout)
}
