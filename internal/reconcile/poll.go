package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var errNotReady = errors.New("not ready")

// WaitUntil polls condition at a fixed interval until it reports ready, the
// timeout elapses, or the parent context is canceled. Condition errors are
// treated as transient and retried within the budget; the budget expiring
// yields ErrReadyTimeout wrapping the last observation.
func WaitUntil(ctx context.Context, interval, timeout time.Duration, condition func(context.Context) (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	operation := func() error {
		ready, err := condition(waitCtx)
		if err != nil {
			lastErr = err
			return err
		}
		if !ready {
			lastErr = errNotReady
			return errNotReady
		}
		lastErr = nil
		return nil
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(interval), waitCtx)
	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if waitCtx.Err() != nil {
			if lastErr != nil && !errors.Is(lastErr, errNotReady) {
				return fmt.Errorf("%w after %s: %v", ErrReadyTimeout, timeout, lastErr)
			}
			return fmt.Errorf("%w after %s", ErrReadyTimeout, timeout)
		}
		return err
	}
	return nil
}
