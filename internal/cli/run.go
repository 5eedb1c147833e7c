package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/ducktest"
	"github.com/roach88/ducktest/internal/scenario"
	"github.com/roach88/ducktest/internal/store"
	"github.com/roach88/ducktest/internal/summary"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // record runs here when set
	Filter   string // keep plan entries whose name matches this glob

	// Store overrides Database (for testing).
	Store *store.Store
}

// SuiteResult is the outcome of one suite file.
type SuiteResult struct {
	File       string           `json:"file"`
	Name       string           `json:"name"`
	OK         bool             `json:"ok"`
	Bailed     bool             `json:"bailed"`
	BailReason string           `json:"bail_reason,omitempty"`
	Totals     summary.Totals   `json:"totals"`
	Failures   []summary.Result `json:"failures,omitempty"`
	RunID      string           `json:"run_id,omitempty"`
	Digest     string           `json:"digest"`
	TAP        []string         `json:"tap"`

	sum *summary.Summary
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <suite-file>...",
		Short: "Run declarative suites and print their TAP reports",
		Long: `Run one or more declarative suite files (.yaml, .yml or .cue).

In text format each report is written to stdout as TAP version 13 and a
one-line summary goes to stderr. In json format the reports and their
summaries are written as a single JSON document.

Exit codes:
  0 - All suites passed
  1 - One or more suites had failures
  2 - Command error (unreadable suite, database error, etc.)
  3 - A suite bailed out

Examples:
  ducktest run ./suites/stack.yaml
  ducktest run ./suites/*.yaml --filter "push*"
  ducktest run ./suites/stack.cue --db ./runs.db --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Database = configured(cmd, "db", opts.Database, opts.Config.DB)
			opts.Filter = configured(cmd, "filter", opts.Filter, opts.Config.Filter)
			return runSuites(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs in this SQLite database")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "run only plan entries whose name matches this glob")

	return cmd
}

func runSuites(cmd *cobra.Command, opts *RunOptions, files []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	logger := newLogger(opts.Verbose, errOut)

	st := opts.Store
	if st == nil && opts.Database != "" {
		logger.Debug("opening database", "path", opts.Database)
		opened, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := opened.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		st = opened
	}

	f := &OutputFormatter{Format: opts.Format, Writer: out, ErrWriter: errOut, Verbose: opts.Verbose}
	colors := newPalette(opts.Color, errOut)
	results := make([]SuiteResult, 0, len(files))
	for _, file := range files {
		res, err := runSuite(ctx, opts, st, logger, file, out)
		if err != nil {
			if opts.Format == "json" {
				_ = f.Error("E001", err.Error(), map[string]string{"file": file})
			}
			return err
		}
		if res.RunID != "" {
			f.VerboseLog("recorded run %s of %s", res.RunID, res.Name)
		}
		results = append(results, res)
	}

	if opts.Format == "json" {
		status := "ok"
		for _, r := range results {
			if !r.OK {
				status = "error"
			}
		}
		resp := CLIResponse{Status: status, Data: results}
		if len(results) == 1 {
			resp.RunID = results[0].RunID
		}
		if err := writeJSON(out, resp); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			colors.writeSummary(errOut, r.Name, r.sum)
		}
	}

	return runsExit(results)
}

func runSuite(ctx context.Context, opts *RunOptions, st *store.Store, logger *slog.Logger, file string, out io.Writer) (SuiteResult, error) {
	def, err := scenario.Load(file)
	if err != nil {
		return SuiteResult{}, WrapExitError(ExitCommandError, "failed to load suite", err)
	}
	if opts.Filter != "" {
		if def, err = filterPlan(def, opts.Filter); err != nil {
			return SuiteResult{}, WrapExitError(ExitCommandError, "invalid filter", err)
		}
	}
	logger.Debug("running suite", "file", file, "name", def.Name, "entries", len(def.Plan))

	var lines []string
	sink := func(line string) {
		lines = append(lines, line)
		if opts.Format != "json" {
			fmt.Fprintln(out, line)
		}
	}
	ok, err := scenario.Run(ctx, def, sink, ducktest.WithLogger(logger))
	if err != nil && !ducktest.IsStructural(err) {
		return SuiteResult{}, WrapExitError(ExitCommandError, "failed to run suite", err)
	}

	sum, err := summary.ParseLines(lines)
	if err != nil {
		return SuiteResult{}, WrapExitError(ExitCommandError, "failed to read report", err)
	}

	res := SuiteResult{
		File:       file,
		Name:       def.Name,
		OK:         ok,
		Bailed:     sum.Bailed,
		BailReason: sum.BailReason,
		Totals:     sum.Totals(),
		Failures:   sum.Failures(),
		Digest:     sum.Digest,
		TAP:        lines,
		sum:        sum,
	}

	if st != nil {
		run, err := st.RecordRun(ctx, def.Name, sum)
		if err != nil {
			return SuiteResult{}, WrapExitError(ExitCommandError, "failed to record run", err)
		}
		logger.Debug("recorded run", "id", run.ID, "seq", run.Seq)
		res.RunID = run.ID
	}
	return res, nil
}

// filterPlan returns a copy of def keeping the plan entries whose testcase
// or fixture name matches pattern.
func filterPlan(def *scenario.Definition, pattern string) (*scenario.Definition, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	filtered := *def
	filtered.Plan = nil
	for _, e := range def.Plan {
		name := e.Testcase
		if name == "" {
			name = e.Fixture
		}
		if matched, _ := filepath.Match(pattern, name); matched {
			filtered.Plan = append(filtered.Plan, e)
		}
	}
	return &filtered, nil
}

// runsExit returns the most severe outcome across results.
func runsExit(results []SuiteResult) error {
	failed := 0
	for _, r := range results {
		if r.Bailed {
			return NewExitError(ExitBailOut, fmt.Sprintf("suite %s bailed out: %s", r.Name, r.BailReason))
		}
		if !r.OK {
			failed++
		}
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d suites failed", failed, len(results)))
	}
	return nil
}
