package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	Color      string // "auto" | "on" | "off"
	ConfigPath string

	// Config is the loaded config file, if any.
	Config Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidColors defines the allowed --color modes.
var ValidColors = []string{"auto", "on", "off"}

// NewRootCommand creates the root command for the ducktest CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ducktest",
		Short: "ducktest - nested subcase testing with TAP output",
		Long: `Run declarative ducktest suites, summarize TAP reports and
browse the history of recorded runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.loadConfig(); err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.applyConfig(cmd)
			return opts.validate()
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Color, "color", "auto", "colorize summaries (auto|on|off)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default "+DefaultConfigFile+" if present)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewSummarizeCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

func (opts *RootOptions) validate() error {
	if !isValidFormat(opts.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
	}
	if !slices.Contains(ValidColors, opts.Color) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid color %q: must be one of %v", opts.Color, ValidColors))
	}
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
