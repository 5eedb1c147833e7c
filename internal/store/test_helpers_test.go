package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/ducktest/internal/summary"
	"github.com/roach88/ducktest/internal/testutil"
)

// createTestStore opens a store in a temp dir with deterministic IDs and seq.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.SequentialIDs("run", 10)),
		WithSequencer(testutil.NewDeterministicClock()),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// parseReport parses TAP lines, failing the test on error.
func parseReport(t *testing.T, lines ...string) *summary.Summary {
	t.Helper()
	sum, err := summary.ParseLines(lines)
	if err != nil {
		t.Fatalf("ParseLines() failed: %v", err)
	}
	return sum
}

func failingReport(t *testing.T) *summary.Summary {
	t.Helper()
	return parseReport(t,
		"TAP version 13",
		"1..1",
		"[testcase]",
		"    [A]",
		"        not ok - failure",
		"          ---",
		"          ...",
		"        1..1",
		"    not ok - A",
		"    ok - B <&>",
		"    1..2",
		"not ok - testcase",
	)
}

func passingReport(t *testing.T) *summary.Summary {
	t.Helper()
	return parseReport(t, "TAP version 13", "1..1", "ok - empty test")
}
