package api

import (
	"context"
	"errors"

	"expensetracker/internal/log"
)

// ErrorCallback receives the error of a failed asynchronous call.
type ErrorCallback func(error)

// Future is the single result of an asynchronous call. A failed call never
// produces a value: Await reports ok == false and the error goes to the
// callback given at start.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	value  T
	ok     bool
	err    error
}

// Go runs fn on its own goroutine. When fn fails, onErr (if non-nil) is
// invoked with the error and the error is logged. Cancellation and
// superseded results are logged at debug level and do not reach onErr.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error), onErr ErrorCallback) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(f.done)
		defer cancel()

		v, err := fn(ctx)
		if err != nil {
			f.err = err
			handleError(ctx, err, onErr)
			return
		}
		f.value, f.ok = v, true
	}()

	return f
}

// Resolved returns a future that already holds v.
func Resolved[T any](v T) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), cancel: func() {}, value: v, ok: true}
	close(f.done)
	return f
}

// Failed returns a future that already failed with err. onErr is invoked
// synchronously.
func Failed[T any](ctx context.Context, err error, onErr ErrorCallback) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), cancel: func() {}, err: err}
	handleError(ctx, err, onErr)
	close(f.done)
	return f
}

// Await blocks until the call finishes or ctx is done. ok is false when the
// call failed, was cancelled, or ctx expired first.
func (f *Future[T]) Await(ctx context.Context) (T, bool) {
	select {
	case <-f.done:
		return f.value, f.ok
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Result waits like Await and reports the failure as an error. A call that
// was cancelled or superseded without another error reports ctx's error or
// ErrSuperseded.
func (f *Future[T]) Result(ctx context.Context) (T, error) {
	v, ok := f.Await(ctx)
	if ok {
		return v, nil
	}
	if err := f.Err(); err != nil {
		return v, err
	}
	if err := ctx.Err(); err != nil {
		return v, err
	}
	return v, ErrSuperseded
}

// Done is closed when the call has finished.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Cancel aborts the call. A cancelled call resolves without a value.
func (f *Future[T]) Cancel() {
	f.cancel()
}

// Err returns the failure once the call has finished, or nil.
func (f *Future[T]) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

func handleError(ctx context.Context, err error, onErr ErrorCallback) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentAPI)
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrSuperseded) {
		logger.DebugContext(ctx, "Request discarded", log.FieldError, err)
		return
	}
	if onErr != nil {
		onErr(err)
	}
	logger.ErrorContext(ctx, "An error occurred", log.FieldError, err, log.FieldStatusCode, StatusCode(err))
}
