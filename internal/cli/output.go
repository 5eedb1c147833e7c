package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/roach88/ducktest/internal/summary"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // A report contained failures
	ExitCommandError = 2 // Command error (invalid paths, unreadable suite, etc.)
	ExitBailOut      = 3 // A report bailed out
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`           // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`   // success payload
	Error  *CLIError   `json:"error,omitempty"`  // error details
	RunID  string      `json:"run_id,omitempty"` // recorded run, when stored
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E001", "E002", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// writeJSON encodes v as a single JSON document.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}

// newLogger returns the logger handed to suites. Verbose mode traces the
// scheduler at debug level.
func newLogger(verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// palette colors summary status words.
type palette struct {
	pass *color.Color
	fail *color.Color
	bail *color.Color
	skip *color.Color
}

// newPalette resolves a --color mode for output written to w.
func newPalette(mode string, w io.Writer) palette {
	p := palette{
		pass: color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		bail: color.New(color.FgYellow, color.Bold),
		skip: color.New(color.FgCyan),
	}
	enabled := mode == "on" || (mode == "auto" && isTerminal(w))
	for _, c := range []*color.Color{p.pass, p.fail, p.bail, p.skip} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// status renders the outcome of a summary as PASS, FAIL or BAIL.
func (p palette) status(sum *summary.Summary) string {
	switch {
	case sum.Bailed:
		return p.bail.Sprint("BAIL")
	case sum.OK():
		return p.pass.Sprint("PASS")
	default:
		return p.fail.Sprint("FAIL")
	}
}

// writeSummary prints a one-line summary of sum followed by its failures.
func (p palette) writeSummary(w io.Writer, name string, sum *summary.Summary) {
	t := sum.Totals()
	skipped := fmt.Sprintf("%d skipped", t.Skipped)
	if t.Skipped > 0 {
		skipped = p.skip.Sprint(skipped)
	}
	fmt.Fprintf(w, "%s %s: %d passed, %d failed, %s\n", p.status(sum), name, t.Passed, t.Failed, skipped)
	if sum.Bailed {
		fmt.Fprintf(w, "  Bail out! %s\n", sum.BailReason)
	}
	for _, r := range sum.Failures() {
		fmt.Fprintf(w, "  not ok %s\n", strings.Join(r.Path, " > "))
	}
}

// summaryExit maps a summary outcome to an exit error, nil when it passed.
func summaryExit(sum *summary.Summary) error {
	switch {
	case sum.Bailed:
		return NewExitError(ExitBailOut, "report bailed out: "+sum.BailReason)
	case !sum.OK():
		return NewExitError(ExitFailure, "report has failures")
	}
	return nil
}
