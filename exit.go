package ducktest

import (
	"context"
	"errors"
	"io"

	"github.com/roach88/ducktest/tap"
)

// Process exit statuses returned by Main and ExitCode.
const (
	ExitSuccess   = 0
	ExitFailure   = 1
	ExitBailOut   = 3
	ExitCancelled = 4
)

// Main reports s to w, waiting for suspended bodies, and returns the process
// exit status. It replaces an exit hook: call it once from the program's main.
func Main(s *Suite, w io.Writer) int {
	return ExitCode(s.Report(context.Background(), tap.WriterSink(w)))
}

// ExitCode maps the outcome of Report to a process exit status. A context
// that ended before the report settled yields ExitCancelled, not ExitBailOut:
// the report was abandoned, not bailed out.
func ExitCode(ok bool, err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ExitCancelled
	case err != nil:
		return ExitBailOut
	case !ok:
		return ExitFailure
	default:
		return ExitSuccess
	}
}
