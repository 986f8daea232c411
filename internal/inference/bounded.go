package inference

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds a single inference call.
const DefaultTimeout = 30 * time.Second

var (
	ErrTimeout     = errors.New("inference: timed out")
	ErrUnavailable = errors.New("inference: model unavailable")
)

// BoundedCall runs fn on its own goroutine and waits at most timeout for
// it. On timeout the caller gets ErrTimeout at once and fn's context is
// cancelled; fn may keep running but its result lands in a private
// buffered channel nobody reads. A panic in fn is returned as an error
// wrapping ErrUnavailable.
func BoundedCall[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", ErrUnavailable, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{val: v, err: err}
	}()

	select {
	case o := <-done:
		// fn may have noticed the deadline before we did.
		if o.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return o.val, timeoutError(timeout)
		}
		return o.val, o.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, timeoutError(timeout)
		}
		return zero, ctx.Err()
	}
}

func timeoutError(d time.Duration) error {
	return fmt.Errorf("%w after %s", ErrTimeout, d)
}
