package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/bridgepass/internal/ir"
)

// RootOptions are the persistent flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	NoColor bool
	Format  string
}

// ValidFormats lists the values --format accepts.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the bridgepass command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bridgepass",
		Short: "bridgepass - native interop metadata passes",
		Long: `Build-time passes over compiled types that bridge to a native runtime.

bridgepass completes interop metadata on overrides of bridged methods and
makes sure every bridged type registers itself with the runtime from its
static initializer.`,
		Version:       ir.ToolVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.NoColor {
				color.NoColor = true
			}
			setupLogging(cmd, logLevel(opts, slog.LevelInfo))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "show info records and debug logs")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(
		NewRunCommand(opts),
		NewCheckCommand(opts),
		NewResolveCommand(opts),
		NewRegistryCommand(opts),
		NewJournalCommand(opts),
		NewReplayCommand(opts),
		NewTestCommand(opts),
	)

	return cmd
}

// setupLogging installs a text handler on stderr at the given level.
func setupLogging(cmd *cobra.Command, level slog.Level) {
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// logLevel is Debug with --verbose, otherwise the configured level.
func logLevel(opts *RootOptions, configured slog.Level) slog.Level {
	if opts.Verbose {
		return slog.LevelDebug
	}
	return configured
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
