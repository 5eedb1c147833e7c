package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/ducktest/internal/store"
	"github.com/roach88/ducktest/internal/testutil"
)

const passingSuite = `name: pass
plan:
  - testcase: one
    steps:
      - subcase: a
      - subcase: b
  - testcase: empty
`

const failingSuite = `name: stack
plan:
  - testcase: push and pop
    steps:
      - message: new stack
      - subcase: push
      - subcase: pop on empty
        steps:
          - fail: underflow
  - testcase: empty
`

const bailingSuite = `name: duplicate
plan:
  - testcase: first
  - testcase: twice
    steps:
      - subcase: same
      - subcase: same
`

// writeFile writes content to name inside dir and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// createTestStore opens a store with deterministic run IDs and sequence numbers.
func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "runs.db"),
		store.WithIDGenerator(testutil.SequentialIDs("run", 10)),
		store.WithSequencer(testutil.NewDeterministicClock()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}
