package deferred

import (
	"fmt"
	"sync"
)

// PanicError carries a value recovered from a panicking producer or
// continuation.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Deferred is a computation that runs at most once. Every call to Honour
// observes the same memoized Promise.
type Deferred[T any] struct {
	once    sync.Once
	produce func() *Promise[T]
	result  *Promise[T]
}

// New wraps produce. A nil promise from produce counts as the zero value.
func New[T any](produce func() *Promise[T]) *Deferred[T] {
	return &Deferred[T]{produce: produce}
}

// From wraps a synchronous producer.
func From[T any](fn func() (T, error)) *Deferred[T] {
	return New(func() *Promise[T] {
		v, err := fn()
		if err != nil {
			return Rejected[T](err)
		}
		return Resolved(v)
	})
}

// Value returns a Deferred that resolves to v.
func Value[T any](v T) *Deferred[T] {
	return New(func() *Promise[T] { return Resolved(v) })
}

// Of adapts an existing promise.
func Of[T any](p *Promise[T]) *Deferred[T] {
	return New(func() *Promise[T] { return p })
}

// Honour forces evaluation. The returned promise is settled when no step of
// the chain suspended.
func (d *Deferred[T]) Honour() *Promise[T] {
	d.once.Do(func() {
		d.result = call(d.produce)
	})
	return d.result
}

// Catch continues with onError when d fails. Successful outcomes pass through.
func (d *Deferred[T]) Catch(onError func(error) *Promise[T]) *Deferred[T] {
	if onError == nil {
		return d
	}
	return Then(d, Resolved[T], onError)
}

// Finally runs fn once after d settles, passing the outcome through unchanged.
func (d *Deferred[T]) Finally(fn func()) *Deferred[T] {
	if fn == nil {
		return d
	}
	return Then(d, func(v T) *Promise[T] {
		fn()
		return Resolved(v)
	}, func(err error) *Promise[T] {
		fn()
		return Rejected[T](err)
	})
}

// Then sequences a continuation after d. onValue must not be nil; a nil
// onError propagates the failure unchanged.
func Then[T, R any](d *Deferred[T], onValue func(T) *Promise[R], onError func(error) *Promise[R]) *Deferred[R] {
	if onError == nil {
		onError = Rejected[R]
	}
	return New(func() *Promise[R] {
		p := d.Honour()
		if p.Settled() {
			return continueWith(p, onValue, onError)
		}
		out, settle := Pending[R]()
		go func() {
			<-p.done
			forward(continueWith(p, onValue, onError), settle)
		}()
		return out
	})
}

func continueWith[T, R any](p *Promise[T], onValue func(T) *Promise[R], onError func(error) *Promise[R]) *Promise[R] {
	if p.err != nil {
		return call(func() *Promise[R] { return onError(p.err) })
	}
	return call(func() *Promise[R] { return onValue(p.value) })
}

func call[T any](fn func() *Promise[T]) (p *Promise[T]) {
	defer func() {
		if v := recover(); v != nil {
			p = Rejected[T](&PanicError{Value: v})
		}
	}()
	if p = fn(); p == nil {
		var zero T
		p = Resolved(zero)
	}
	return p
}
