// Package ducktest runs test bodies that branch into nested, re-enterable
// subcases and reports the results as TAP version 13.
//
// A testcase body is executed once per leaf of its subcase tree. Code
// outside a subcase is replayed on every pass, so setup shared between
// variations is written once:
//
//	s := ducktest.New()
//	s.Testcase("stack", func() {
//	    st := newStack()
//	    s.Subcase("push", func() { ... })
//	    s.Subcase("pop on empty", func() { ... })
//	})
//	os.Exit(ducktest.Main(s, os.Stdout))
//
// Each pass follows one path through the tree. Subcases that are not on the
// path are only registered; the first pass discovers the children of the
// testcase and each later pass descends into exactly one of them.
//
// Failures are recorded with SoftFail, returned from Softly, or raised by a
// panicking body; they mark the enclosing report node as failed. Misuse of
// the API, such as a repeated subcase name within one pass, is a
// StructuralError and bails out the whole report.
//
// Bodies may suspend by returning a pending promise from the deferred
// package. When no body suspends, Start completes before it returns.
package ducktest
