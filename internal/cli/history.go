package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ducktest/internal/store"
	"github.com/roach88/ducktest/internal/summary"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string // show one run in detail

	// Store overrides Database (for testing).
	Store *store.Store
}

// RunDetail is one run together with its failing results.
type RunDetail struct {
	Run      store.Run        `json:"run"`
	Failures []summary.Result `json:"failures"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [suite]",
		Short: "List recorded runs",
		Long: `List runs recorded by "ducktest run --db", newest first.

With --run, show a single run and its failing results.

Examples:
  ducktest history --db ./runs.db
  ducktest history stack --db ./runs.db --limit 5
  ducktest history --db ./runs.db --run 01927f6c-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Database = configured(cmd, "db", opts.Database, opts.Config.DB)
			suite := ""
			if len(args) == 1 {
				suite = args[0]
			}
			return showHistory(cmd, opts, suite)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the run with this ID")

	return cmd
}

func showHistory(cmd *cobra.Command, opts *HistoryOptions, suite string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st := opts.Store
	if st == nil {
		if opts.Database == "" {
			return NewExitError(ExitCommandError, "no database: pass --db or set db in the config file")
		}
		opened, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer opened.Close()
		st = opened
	}

	out := cmd.OutOrStdout()
	if opts.RunID != "" {
		return showRun(ctx, st, opts, out)
	}

	runs, err := st.ListRuns(ctx, suite, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	f := &OutputFormatter{Format: opts.Format, Writer: out}
	if opts.Format == "json" {
		return f.Success(runs)
	}
	if len(runs) == 0 {
		return f.Success("No runs recorded.")
	}
	colors := newPalette(opts.Color, out)
	for _, run := range runs {
		writeRunLine(out, colors, run)
	}
	return nil
}

func showRun(ctx context.Context, st *store.Store, opts *HistoryOptions, out io.Writer) error {
	run, err := st.GetRun(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		return WrapExitError(ExitCommandError, "run not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	failures, err := st.ReadFailures(ctx, run.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read failures", err)
	}

	if opts.Format == "json" {
		return writeJSON(out, CLIResponse{Status: "ok", RunID: run.ID, Data: RunDetail{Run: run, Failures: failures}})
	}
	writeRunLine(out, newPalette(opts.Color, out), run)
	fmt.Fprintf(out, "  digest %s\n", run.Digest)
	if run.Bailed {
		fmt.Fprintf(out, "  Bail out! %s\n", run.BailReason)
	}
	for _, r := range failures {
		fmt.Fprintf(out, "  not ok %s (line %d)\n", strings.Join(r.Path, " > "), r.Line)
	}
	return nil
}

func writeRunLine(w io.Writer, colors palette, run store.Run) {
	status := colors.fail.Sprint("FAIL")
	switch {
	case run.Bailed:
		status = colors.bail.Sprint("BAIL")
	case run.OK:
		status = colors.pass.Sprint("PASS")
	}
	fmt.Fprintf(w, "%6d  %s  %s  %-20s %d passed, %d failed, %d skipped\n",
		run.Seq, run.ID, status, run.Suite, run.Passed, run.Failed, run.Skipped)
}
