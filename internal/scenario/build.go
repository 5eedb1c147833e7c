package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/ducktest"
	"github.com/roach88/ducktest/tap"
)

// StepError is the failure raised by "fail" and "error" steps.
type StepError struct {
	Message string
}

func (e *StepError) Error() string {
	return e.Message
}

// Options returns the suite options requested by def.
func (def *Definition) Options() []ducktest.Option {
	if def.Ordering == "concurrent" {
		return []ducktest.Option{ducktest.WithOrdering(tap.Concurrent)}
	}
	return nil
}

// Build registers def's plan on s.
func Build(def *Definition, s *ducktest.Suite) {
	b := builder{suite: s}
	for _, e := range def.Plan {
		switch {
		case e.Testcase != "":
			s.Testcase(e.Testcase, b.body(e.Steps))
		case e.Fixture != "":
			s.Fixture(e.Fixture, b.body(e.Steps))
		}
	}
}

// Run builds def on a new suite and reports it to sink.
func Run(ctx context.Context, def *Definition, sink tap.Sink, opts ...ducktest.Option) (bool, error) {
	s := ducktest.New(append(def.Options(), opts...)...)
	Build(def, s)
	ok, err := s.Report(ctx, sink)
	if err != nil && !ducktest.IsStructural(err) {
		return ok, fmt.Errorf("run %s: %w", def.Name, err)
	}
	return ok, err
}

type builder struct {
	suite *ducktest.Suite
}

func (b builder) body(steps []Step) func() {
	return func() {
		for _, st := range steps {
			b.step(st)
		}
	}
}

func (b builder) step(st Step) {
	s := b.suite
	switch {
	case st.Subcase != "":
		s.Subcase(st.Subcase, b.body(st.Steps))
	case st.Testcase != "":
		s.Testcase(st.Testcase, b.body(st.Steps))
	case st.Message != "":
		s.Message(st.Message)
	case st.Fail != "":
		s.SoftFail(&StepError{Message: st.Fail})
	case st.Error != "":
		panic(&StepError{Message: st.Error})
	}
}

// IsStepError reports whether err was raised by a fail or error step.
func IsStepError(err error) bool {
	var se *StepError
	return errors.As(err, &se)
}
