package ducktest

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/ducktest/deferred"
	"github.com/roach88/ducktest/softassert"
	"github.com/roach88/ducktest/tap"
)

const skipEnclosingFailed = "SKIP enclosing case failed"

// section is one node on the path of the current testcase. Sections persist
// from the pass that discovers them until their subtree is exhausted.
type section struct {
	description string
	key         string
	report      *tap.Report

	children []string        // discovered, in discovery order
	known    map[string]bool // children plus skipped names
	next     int             // next child to visit

	seen     map[string]bool // names encountered this pass
	complete *deferred.Deferred[struct{}]
	waiting  bool // body returned a pending promise this pass
}

func newSection(description string, report *tap.Report) *section {
	return &section{
		description: description,
		key:         subcaseKey(description),
		report:      report,
		known:       map[string]bool{},
	}
}

// testcaseState drives the passes of one top-level testcase.
type testcaseState struct {
	suite *Suite
	base  *tap.Report
	body  AsyncBody

	stack     []*section
	depth     int  // index of the section whose body is executing
	suspended bool // a pass is pending and control returned to a fixture body
}

// subcaseKey normalizes a description for comparison.
func subcaseKey(description string) string {
	return norm.NFC.String(description)
}

// currentReport is the report of the deepest section on the path. Setup code
// replayed on a pass reports against the leaf that pass explores.
func (st *testcaseState) currentReport() *tap.Report {
	if len(st.stack) == 0 {
		return st.base
	}
	return st.stack[len(st.stack)-1].report
}

func (st *testcaseState) path() string {
	names := make([]string, len(st.stack))
	for i, sec := range st.stack {
		names[i] = sec.description
	}
	return strings.Join(names, " > ")
}

// runTestcase explores every path of body under base.
func (s *Suite) runTestcase(base *tap.Report, description string, body AsyncBody) *deferred.Deferred[struct{}] {
	return deferred.New(func() *deferred.Promise[struct{}] {
		st := &testcaseState{suite: s, base: base, body: body}
		prev := s.tc
		s.tc = st
		p := st.explore(description).Finally(func() { s.tc = prev }).Honour()
		st.suspended = !p.Settled()
		return p
	})
}

// queueTestcase schedules a testcase registered by the active fixture body.
// It runs now when no earlier one is still suspended, and after the last
// queued one otherwise.
func (s *Suite) queueTestcase(description string, body AsyncBody) *deferred.Promise[struct{}] {
	report := s.fixture
	s.queued = deferred.Then(s.queued, func(struct{}) *deferred.Promise[struct{}] {
		return s.runTestcase(report, description, body).Honour()
	}, nil)
	return s.queued.Honour()
}

// explore runs passes until no undiscovered path remains.
func (st *testcaseState) explore(description string) *deferred.Deferred[struct{}] {
	return deferred.Then(st.pass(description), func(next nextPass) *deferred.Promise[struct{}] {
		if !next.ok {
			return deferred.Done()
		}
		return st.explore(next.description).Honour()
	}, nil)
}

type nextPass struct {
	description string
	ok          bool
}

// pass extends the path by description and replays the testcase body.
func (st *testcaseState) pass(description string) *deferred.Deferred[nextPass] {
	return deferred.New(func() *deferred.Promise[nextPass] {
		report, err := st.currentReport().BeginOrdered(description, st.suite.ordering)
		if err != nil {
			return deferred.Rejected[nextPass](reportError(err))
		}
		st.stack = append(st.stack, newSection(description, report))
		for _, sec := range st.stack {
			sec.seen = map[string]bool{}
			sec.complete = deferred.Value(struct{}{})
			sec.waiting = false
		}
		st.depth = 0
		st.suite.logger.Debug("starting pass", "path", st.path())

		root := st.stack[0]
		run := deferred.Then(st.invoke(st.body), func(struct{}) *deferred.Promise[struct{}] {
			return root.complete.Honour()
		}, nil).Catch(st.record)

		return deferred.Then(run, func(struct{}) *deferred.Promise[nextPass] {
			next, err := st.advance()
			if err != nil {
				return deferred.Rejected[nextPass](err)
			}
			return deferred.Resolved(next)
		}, nil).Honour()
	})
}

// invoke runs the synchronous part of body now.
func (st *testcaseState) invoke(body AsyncBody) *deferred.Deferred[struct{}] {
	d := deferred.New(func() *deferred.Promise[struct{}] { return body() })
	d.Honour()
	return d
}

// record folds a body failure into the current report. Structural errors
// propagate.
func (st *testcaseState) record(err error) *deferred.Promise[struct{}] {
	return fold(st.currentReport(), err)
}

func fold(report *tap.Report, err error) *deferred.Promise[struct{}] {
	if se, ok := asStructural(err); ok {
		return deferred.Rejected[struct{}](se)
	}
	if errors.Is(err, softassert.ErrFailNow) {
		return deferred.Done()
	}
	if ferr := report.Fail(err); ferr != nil {
		return deferred.Rejected[struct{}](reportError(ferr))
	}
	return deferred.Done()
}

// subcase handles one Subcase call against the current pass.
func (st *testcaseState) subcase(description string, body AsyncBody) (*deferred.Promise[struct{}], error) {
	key := subcaseKey(description)
	level := st.owner(key)
	cur := st.stack[level]
	if cur.seen[key] {
		return nil, errDuplicateSubcase
	}
	cur.seen[key] = true

	if level+1 < len(st.stack) && st.stack[level+1].key == key {
		prev := cur.complete
		cur.complete = deferred.Then(prev, func(struct{}) *deferred.Promise[struct{}] {
			return st.descend(level, body).Honour()
		}, nil)
		return cur.complete.Honour(), nil
	}

	if cur.known[key] {
		return deferred.Done(), nil
	}

	if level+1 != len(st.stack) {
		return nil, errUnexpectedSubcase
	}

	cur.known[key] = true
	if !cur.report.Success() {
		st.suite.logger.Debug("skipping subcase", "path", st.path(), "subcase", description)
		if err := skip(cur.report, description); err != nil {
			return nil, err
		}
		return deferred.Done(), nil
	}
	st.suite.logger.Debug("discovered subcase", "path", st.path(), "subcase", description)
	cur.children = append(cur.children, description)
	return deferred.Done(), nil
}

// owner returns the level a Subcase call for key belongs to. Calls made
// while a child body is suspended belong to the child, except names its
// enclosing bodies already know: those are the enclosing body continuing
// past an unchained SubcaseAsync.
func (st *testcaseState) owner(key string) int {
	level := st.depth
	cur := st.stack[level]
	if cur.seen[key] || cur.known[key] || (level+1 < len(st.stack) && st.stack[level+1].key == key) {
		return level
	}
	for l := level - 1; l >= 0 && st.stack[l+1].waiting; l-- {
		if st.stack[l].seen[key] || st.stack[l].known[key] {
			return l
		}
	}
	return level
}

// descend runs the body of the path child below level. Subcase calls made
// before that body settles belong to the child unless owner says otherwise.
func (st *testcaseState) descend(level int, body AsyncBody) *deferred.Deferred[struct{}] {
	return deferred.New(func() *deferred.Promise[struct{}] {
		child := st.stack[level+1]
		st.depth = level + 1
		invoked := st.invoke(body)
		child.waiting = !invoked.Honour().Settled()
		ran := invoked.Finally(func() {
			child.waiting = false
			st.depth = level
		})

		return deferred.Then(ran, func(struct{}) *deferred.Promise[struct{}] {
			return child.complete.Honour()
		}, nil).Catch(st.record).Honour()
	})
}

// advance ends exhausted sections and picks the next child to explore.
func (st *testcaseState) advance() (nextPass, error) {
	if f := st.suite.fault; f != nil {
		return nextPass{}, f
	}

	top := st.stack[len(st.stack)-1]
	if !top.report.Success() {
		for ; top.next < len(top.children); top.next++ {
			if err := skip(top.report, top.children[top.next]); err != nil {
				return nextPass{}, err
			}
		}
	}

	for len(st.stack) > 0 {
		top := st.stack[len(st.stack)-1]
		if top.next < len(top.children) {
			name := top.children[top.next]
			top.next++
			return nextPass{description: name, ok: true}, nil
		}
		st.stack = st.stack[:len(st.stack)-1]
		if err := top.report.End(); err != nil {
			return nextPass{}, reportError(err)
		}
	}
	return nextPass{}, nil
}

func skip(parent *tap.Report, description string) error {
	child, err := parent.Begin(description)
	if err != nil {
		return reportError(err)
	}
	if err := child.EndWith(skipEnclosingFailed); err != nil {
		return reportError(err)
	}
	return nil
}

// runFixture runs body once under a subsection of root.
func (s *Suite) runFixture(root *tap.Report, description string, body AsyncBody) *deferred.Deferred[struct{}] {
	return deferred.New(func() *deferred.Promise[struct{}] {
		report, err := root.BeginOrdered(description, s.ordering)
		if err != nil {
			return deferred.Rejected[struct{}](reportError(err))
		}
		s.fixture = report
		s.queued = deferred.Value(struct{}{})
		s.logger.Debug("running fixture", "description", description)

		ran := deferred.New(func() *deferred.Promise[struct{}] { return body() }).
			Catch(func(err error) *deferred.Promise[struct{}] { return fold(report, err) })
		drained := deferred.Then(ran, func(struct{}) *deferred.Promise[struct{}] {
			return s.queued.Honour()
		}, nil).Finally(func() {
			s.fixture = nil
			s.queued = nil
		})

		return deferred.Then(drained, func(struct{}) *deferred.Promise[struct{}] {
			if f := s.fault; f != nil {
				return deferred.Rejected[struct{}](f)
			}
			if err := report.End(); err != nil {
				return deferred.Rejected[struct{}](reportError(err))
			}
			return deferred.Done()
		}, nil).Honour()
	})
}
