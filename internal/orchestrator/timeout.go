package orchestrator

import (
	"context"
	"fmt"
	"time"
)

type outcome[T any] struct {
	val T
	err error
}

// WithTimeout races op against a deadline of d. The operation receives a
// child context that is cancelled with cause ErrAbortTimeout when the
// deadline fires first, or with the caller's cause when the parent context
// is cancelled; cancellation after the operation has settled is a no-op.
//
// On timeout the wrapper returns a TimeoutError immediately and does not
// wait for op's eventual settlement. d <= 0 means the deadline fires on
// the next tick, not "never".
func WithTimeout[T any](ctx context.Context, d time.Duration, label string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if d < 0 {
		d = 0
	}

	opCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(opCtx)
		done <- outcome[T]{val: v, err: err}
	}()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case out := <-done:
		cancel(nil)
		return out.val, out.err
	case <-timer.C:
		cancel(ErrAbortTimeout)
		return zero, &TimeoutError{Label: label, Timeout: d}
	case <-ctx.Done():
		cause := context.Cause(ctx)
		if cause == nil || cause == ctx.Err() {
			cause = ErrAbortUserStop
		}
		cancel(cause)
		return zero, fmt.Errorf("%s aborted: %w", label, cause)
	}
}
