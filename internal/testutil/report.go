package testutil

import (
	"context"
	"testing"

	"github.com/roach88/ducktest"
	"github.com/roach88/ducktest/tap"
)

// ReportLines reports s and returns the TAP lines it wrote.
func ReportLines(t testing.TB, s *ducktest.Suite) (lines []string, ok bool, err error) {
	t.Helper()
	ok, err = s.Report(context.Background(), tap.Collect(&lines))
	return lines, ok, err
}
