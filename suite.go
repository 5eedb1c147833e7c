package ducktest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/ducktest/deferred"
	"github.com/roach88/ducktest/softassert"
	"github.com/roach88/ducktest/tap"
)

// AsyncBody is a test body that may suspend by returning a pending promise.
type AsyncBody func() *deferred.Promise[struct{}]

type entry struct {
	description string
	run         func(root *tap.Report) *deferred.Deferred[struct{}]
}

// Suite holds an ordered plan of testcases and fixtures and the state of the
// run executing it. A Suite reports once.
//
// The registration methods panic with a *StructuralError when misused from
// inside a body; the panic unwinds the body and bails out the report.
type Suite struct {
	logger   *slog.Logger
	ordering tap.Ordering

	plan     []entry
	reported bool
	running  bool

	tc      *testcaseState // active testcase
	fixture *tap.Report    // active fixture
	queued  *deferred.Deferred[struct{}]
	fault   *StructuralError
}

// New returns an empty Suite.
func New(opts ...Option) *Suite {
	s := &Suite{
		logger:   discardLogger(),
		ordering: tap.Serial,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Testcase registers a top-level section tree. Called from a fixture body,
// it runs the testcase before returning unless an earlier testcase of that
// fixture is still suspended, in which case it runs once that one settles.
func (s *Suite) Testcase(description string, body func()) {
	s.TestcaseAsync(description, syncBody(body))
}

// TestcaseAsync is Testcase for a body that may suspend.
func (s *Suite) TestcaseAsync(description string, body AsyncBody) {
	if s.tc != nil && !(s.fixture != nil && s.tc.suspended) {
		s.raise(errTestcaseNested)
	}
	if s.fixture != nil {
		p := s.queueTestcase(description, body)
		if p.Settled() {
			if _, err := p.Result(); err != nil {
				s.raiseErr(err)
			}
		}
		return
	}
	if s.reported {
		s.raise(errAlreadyReported)
	}
	s.plan = append(s.plan, entry{
		description: description,
		run: func(root *tap.Report) *deferred.Deferred[struct{}] {
			return s.runTestcase(root, description, body)
		},
	})
}

// Subcase registers a re-enterable branch of the enclosing body. The body
// runs only on the pass whose path selects it. The returned promise settles
// when that run completes; it is already settled for registration-only calls.
func (s *Suite) Subcase(description string, body func()) *deferred.Promise[struct{}] {
	return s.SubcaseAsync(description, syncBody(body))
}

// SubcaseAsync is Subcase for a body that may suspend.
func (s *Suite) SubcaseAsync(description string, body AsyncBody) *deferred.Promise[struct{}] {
	st := s.tc
	if st == nil || len(st.stack) == 0 {
		s.raise(errSubcaseOutside)
	}
	p, err := st.subcase(description, body)
	if err != nil {
		s.raiseErr(err)
	}
	if p.Settled() {
		if _, err := p.Result(); err != nil {
			if _, ok := asStructural(err); ok {
				s.raiseErr(err)
			}
		}
	}
	return p
}

// Fixture registers a body that runs once, unreplayed. Testcases registered
// from it are scheduled individually, in call order, under a subsection named
// description.
func (s *Suite) Fixture(description string, body func()) {
	s.FixtureAsync(description, syncBody(body))
}

// FixtureAsync is Fixture for a body that may suspend.
func (s *Suite) FixtureAsync(description string, body AsyncBody) {
	switch {
	case s.fixture != nil:
		s.raise(errNestedFixture)
	case s.tc != nil:
		s.raise(errFixtureNested)
	case s.reported:
		s.raise(errAlreadyReported)
	}
	s.plan = append(s.plan, entry{
		description: description,
		run: func(root *tap.Report) *deferred.Deferred[struct{}] {
			return s.runFixture(root, description, body)
		},
	})
}

// Message writes a diagnostic to the active report node.
func (s *Suite) Message(text string) {
	r := s.activeReport()
	if r == nil {
		s.raise(errMessageOutside)
	}
	if err := r.Diagnostic(text); err != nil {
		s.raise(reportError(err))
	}
}

// SoftFail records err as a failure of the active report node without
// stopping the body.
func (s *Suite) SoftFail(err error) {
	r := s.activeReport()
	if r == nil {
		s.raise(errSoftFailOutside)
	}
	if ferr := r.Fail(err); ferr != nil {
		s.raise(reportError(ferr))
	}
}

// Softly runs action and records its error, or a panic other than a
// structural error, as a soft failure.
func (s *Suite) Softly(action func() error) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		err := panicError(v)
		if _, ok := asStructural(err); ok {
			panic(v)
		}
		if errors.Is(err, softassert.ErrFailNow) {
			return
		}
		s.SoftFail(err)
	}()
	if err := action(); err != nil {
		s.SoftFail(err)
	}
}

// T returns an assertion target whose failures are soft failures of the
// active report node.
func (s *Suite) T() *softassert.T {
	return softassert.New(s.SoftFail)
}

// Start executes the plan against sink and returns the aggregate success.
// The promise is settled on return when no body suspended.
func (s *Suite) Start(sink tap.Sink) *deferred.Promise[bool] {
	if s.reported || s.running {
		return deferred.Rejected[bool](errAlreadyReported)
	}
	s.reported, s.running = true, true

	root := tap.Begin(sink, tap.WithPlan(len(s.plan)), tap.WithOrdering(s.ordering))
	chain := deferred.Value(struct{}{})
	for _, e := range s.plan {
		chain = deferred.Then(chain, func(struct{}) *deferred.Promise[struct{}] {
			s.logger.Debug("running plan entry", "description", e.description)
			return e.run(root).Honour()
		}, nil)
	}

	final := deferred.Then(chain, func(struct{}) *deferred.Promise[bool] {
		if err := root.End(); err != nil {
			return deferred.Rejected[bool](reportError(err))
		}
		return deferred.Resolved(root.Success())
	}, nil).Catch(func(err error) *deferred.Promise[bool] {
		s.logger.Warn("bailing out", "error", err)
		root.BailOut(err)
		return deferred.Rejected[bool](err)
	}).Finally(func() {
		s.running = false
	})
	return final.Honour()
}

// Report executes the plan against sink, waiting for suspended bodies. It
// returns whether every test passed; a non-nil error means the report bailed
// out.
func (s *Suite) Report(ctx context.Context, sink tap.Sink) (bool, error) {
	return s.Start(sink).Wait(ctx)
}

func (s *Suite) activeReport() *tap.Report {
	if s.tc != nil {
		return s.tc.currentReport()
	}
	return s.fixture
}

func (s *Suite) raise(err *StructuralError) {
	if s.running && s.fault == nil {
		s.fault = err
	}
	raise(err)
}

func (s *Suite) raiseErr(err error) {
	se, ok := asStructural(err)
	if !ok {
		raiseErr(err)
	}
	s.raise(se)
}

func syncBody(body func()) AsyncBody {
	return func() *deferred.Promise[struct{}] {
		body()
		return deferred.Done()
	}
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return &deferred.PanicError{Value: v}
}
