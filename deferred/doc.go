// Package deferred provides a memoized, chainable computation that completes
// either immediately or after a later suspension.
//
// A [Deferred] wraps a producer that runs at most once, on the first call to
// [Deferred.Honour]. Honouring returns a [Promise]. When no step of a chain
// suspends, the returned promise is already settled and every continuation
// has run on the calling goroutine, in order. When a step returns a pending
// promise, later continuations run on a separate goroutine after that promise
// settles; they never overlap with one another.
//
// # Usage
//
//	d := deferred.From(func() (int, error) { return 21, nil })
//	doubled := deferred.Then(d, func(v int) *deferred.Promise[int] {
//	    return deferred.Resolved(v * 2)
//	}, nil)
//	v, err := doubled.Honour().Result() // 42, nil; settled synchronously
//
// Suspension is expressed by returning a pending promise:
//
//	p, settle := deferred.Pending[struct{}]()
//	go func() { <-ready; settle(struct{}{}, nil) }()
//	return p
package deferred
