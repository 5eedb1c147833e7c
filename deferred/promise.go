package deferred

import (
	"context"
	"sync"
)

// settled is shared by every promise that is created already settled.
var settled = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Promise is the outcome of honouring a Deferred. It is either settled on
// creation or becomes settled exactly once through its settle function.
type Promise[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Resolved returns a promise already settled with v.
func Resolved[T any](v T) *Promise[T] {
	return &Promise[T]{done: settled, value: v}
}

// Rejected returns a promise already settled with err.
func Rejected[T any](err error) *Promise[T] {
	return &Promise[T]{done: settled, err: err}
}

// Done returns a settled promise carrying no value.
func Done() *Promise[struct{}] {
	return Resolved(struct{}{})
}

// Pending returns an unsettled promise and the function that settles it.
// Only the first call to settle has any effect.
func Pending[T any]() (*Promise[T], func(T, error)) {
	p := &Promise[T]{done: make(chan struct{})}
	var once sync.Once
	return p, func(v T, err error) {
		once.Do(func() {
			p.value, p.err = v, err
			close(p.done)
		})
	}
}

// Settled reports whether the outcome is available without waiting.
func (p *Promise[T]) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the promise settles.
func (p *Promise[T]) Done() <-chan struct{} {
	return p.done
}

// Result blocks until the promise settles and returns its outcome.
func (p *Promise[T]) Result() (T, error) {
	<-p.done
	return p.value, p.err
}

// Wait is Result bounded by ctx. A cancelled wait leaves the promise untouched.
func (p *Promise[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// forward settles through settle once p settles, blocking the caller.
func forward[T any](p *Promise[T], settle func(T, error)) {
	<-p.done
	settle(p.value, p.err)
}
