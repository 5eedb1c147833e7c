package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/ducktest/internal/summary"
)

// SummaryResult is the JSON form of a summarized report.
type SummaryResult struct {
	OK          bool             `json:"ok"`
	Plan        int              `json:"plan"`
	Bailed      bool             `json:"bailed"`
	BailReason  string           `json:"bail_reason,omitempty"`
	Totals      summary.Totals   `json:"totals"`
	Failures    []summary.Result `json:"failures,omitempty"`
	Diagnostics []string         `json:"diagnostics,omitempty"`
}

// NewSummarizeCommand creates the summarize command.
func NewSummarizeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize [tap-file]",
		Short: "Summarize a TAP report",
		Long: `Read a TAP version 13 report and print its totals and failures.

The report is read from the named file, or from stdin when the file is
omitted or "-". Exit codes follow the run command.

Examples:
  go test ./... | ducktest summarize
  ducktest summarize report.tap --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			name := "stdin"
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to open report", err)
				}
				defer f.Close()
				r, name = f, args[0]
			}
			return summarize(cmd, rootOpts, name, r)
		},
	}
	return cmd
}

func summarize(cmd *cobra.Command, opts *RootOptions, name string, r io.Reader) error {
	sum, err := summary.Parse(r)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to parse report", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		status := "ok"
		if !sum.OK() {
			status = "error"
		}
		err := writeJSON(out, CLIResponse{Status: status, Data: SummaryResult{
			OK:          sum.OK(),
			Plan:        sum.Plan,
			Bailed:      sum.Bailed,
			BailReason:  sum.BailReason,
			Totals:      sum.Totals(),
			Failures:    sum.Failures(),
			Diagnostics: sum.Diagnostics,
		}})
		if err != nil {
			return err
		}
	} else {
		newPalette(opts.Color, out).writeSummary(out, name, sum)
	}
	return summaryExit(sum)
}
