package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ducktest/internal/store"
)

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if args == nil {
		// cobra falls back to os.Args when args is nil.
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func textOptions() *RootOptions {
	return &RootOptions{Format: "text", Color: "off"}
}

func TestRunPassingSuite(t *testing.T) {
	suite := writeFile(t, t.TempDir(), "pass.yaml", passingSuite)

	stdout, stderr, err := execute(NewRunCommand(textOptions()), suite)
	require.NoError(t, err)

	assert.Equal(t, `TAP version 13
1..2
[one]
    ok - a
    ok - b
    1..2
ok - one
ok - empty
`, stdout)
	assert.Equal(t, "PASS pass: 3 passed, 0 failed, 0 skipped\n", stderr)
}

func TestRunFailingSuite(t *testing.T) {
	suite := writeFile(t, t.TempDir(), "stack.yaml", failingSuite)

	stdout, stderr, err := execute(NewRunCommand(textOptions()), suite)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "1 of 1 suites failed")

	assert.Contains(t, stdout, "        not ok - underflow\n")
	assert.Contains(t, stdout, "not ok - push and pop\n")
	assert.Equal(t, "FAIL stack: 2 passed, 1 failed, 0 skipped\n  not ok push and pop > pop on empty > underflow\n", stderr)
}

func TestRunBailOut(t *testing.T) {
	dir := t.TempDir()
	bail := writeFile(t, dir, "duplicate.yaml", bailingSuite)
	fail := writeFile(t, dir, "stack.yaml", failingSuite)

	stdout, stderr, err := execute(NewRunCommand(textOptions()), fail, bail)
	require.Error(t, err)
	assert.Equal(t, ExitBailOut, GetExitCode(err))

	assert.Contains(t, stdout, "Bail out! duplicate subcase name encountered during run\n")
	assert.Contains(t, stderr, "FAIL stack:")
	assert.Contains(t, stderr, "BAIL duplicate: 1 passed, 0 failed, 0 skipped\n  Bail out! duplicate subcase name encountered during run\n")
}

func TestRunJSON(t *testing.T) {
	suite := writeFile(t, t.TempDir(), "stack.yaml", failingSuite)

	stdout, _, err := execute(NewRunCommand(&RootOptions{Format: "json", Color: "off"}), suite)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string        `json:"status"`
		Data   []SuiteResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.Len(t, resp.Data, 1)

	got := resp.Data[0]
	assert.Equal(t, "stack", got.Name)
	assert.False(t, got.OK)
	assert.Equal(t, 2, got.Totals.Passed)
	assert.Equal(t, 1, got.Totals.Failed)
	require.Len(t, got.Failures, 1)
	assert.Equal(t, []string{"push and pop", "pop on empty", "underflow"}, got.Failures[0].Path)
	assert.Equal(t, "TAP version 13", got.TAP[0])
}

func TestRunFilter(t *testing.T) {
	suite := writeFile(t, t.TempDir(), "stack.yaml", failingSuite)

	stdout, _, err := execute(NewRunCommand(textOptions()), "--filter", "emp*", suite)
	require.NoError(t, err)
	assert.Equal(t, "TAP version 13\n1..1\nok - empty\n", stdout)
}

func TestRunInvalidFilter(t *testing.T) {
	suite := writeFile(t, t.TempDir(), "stack.yaml", failingSuite)

	_, _, err := execute(NewRunCommand(textOptions()), "--filter", "[", suite)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunMissingSuite(t *testing.T) {
	_, _, err := execute(NewRunCommand(textOptions()), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load suite")
}

func TestRunMissingSuiteJSON(t *testing.T) {
	stdout, _, err := execute(NewRunCommand(&RootOptions{Format: "json", Color: "off"}), "missing.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "failed to load suite")
}

func TestRunRequiresSuite(t *testing.T) {
	_, _, err := execute(NewRunCommand(textOptions()))
	require.Error(t, err)
}

func TestRunRecordsToStore(t *testing.T) {
	dir := t.TempDir()
	fail := writeFile(t, dir, "stack.yaml", failingSuite)
	pass := writeFile(t, dir, "pass.yaml", passingSuite)
	st := createTestStore(t)

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	opts := &RunOptions{RootOptions: textOptions(), Store: st}

	err := runSuites(cmd, opts, []string{fail, pass})
	assert.Equal(t, ExitFailure, GetExitCode(err))

	runs, err := st.ListRuns(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-002", runs[0].ID)
	assert.Equal(t, "pass", runs[0].Suite)
	assert.True(t, runs[0].OK)
	assert.Equal(t, "run-001", runs[1].ID)
	assert.Equal(t, "stack", runs[1].Suite)
	assert.Equal(t, 1, runs[1].Failed)

	failures, err := st.ReadFailures(context.Background(), "run-001")
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "underflow", failures[0].Description())
}

func TestRunDatabaseFromConfig(t *testing.T) {
	dir := t.TempDir()
	suite := writeFile(t, dir, "pass.yaml", passingSuite)
	dbPath := filepath.Join(dir, "runs.db")
	cfg := writeFile(t, dir, "ducktest.yaml", "db: "+dbPath+"\ncolor: \"off\"\n")

	_, stderr, err := execute(NewRootCommand(), "--config", cfg, "run", suite)
	require.NoError(t, err)
	assert.Equal(t, "PASS pass: 3 passed, 0 failed, 0 skipped\n", stderr)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.LatestRun(context.Background(), "pass")
	require.NoError(t, err)
	assert.True(t, run.OK)
	assert.Equal(t, 3, run.Passed)
}

func TestRunVerboseTracesScheduler(t *testing.T) {
	suite := writeFile(t, t.TempDir(), "pass.yaml", passingSuite)

	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	errOut := &bytes.Buffer{}
	cmd.SetErr(errOut)
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text", Color: "off", Verbose: true},
		Store:       createTestStore(t),
	}

	require.NoError(t, runSuites(cmd, opts, []string{suite}))
	assert.Contains(t, errOut.String(), "level=DEBUG msg=\"starting pass\"")
	assert.Contains(t, errOut.String(), "recorded run run-001 of pass\n")
}
