package cli

import (
	"github.com/spf13/cobra"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	PipelineFlags
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <input>",
		Short: "Run the passes without writing output",
		Long: `Run the configured stages over a compiled-type stream and report
diagnostics without writing the transformed stream.

Faster feedback than run when only placement, collision, and cardinality
errors matter.

Exit codes:
  0 - No fatal errors
  1 - A fatal pass error was found
  2 - Command error

Examples:
  bridgepass check app.jsonl --classpath runtime/
  bridgepass check app.jsonl --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	opts.PipelineFlags.register(cmd)
	return cmd
}

func runCheck(opts *CheckOptions, inputPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	env, err := loadEnvironment(cmd, &opts.PipelineFlags)
	if err != nil {
		return loadFailure(formatter, "failed to load configuration", err)
	}
	setupLogging(cmd, logLevel(opts.RootOptions, env.Config.Log.SlogLevel()))

	input, err := readInput(cmd, inputPath)
	if err != nil {
		return loadFailure(formatter, "failed to read input", err)
	}
	formatter.VerboseLog("Loaded %d type(s) from %s, %d library type(s)", len(input), inputPath, len(env.Library))

	p := env.newPipeline(nil)
	res, runErr := p.Run(commandContext(cmd), input)
	if res == nil {
		return loadFailure(formatter, "failed to configure pipeline", &LoadError{Code: ErrCodeConfig, Message: runErr.Error()})
	}

	summary := summarize(inputPath, p.Stages(), res)
	if runErr != nil {
		return reportFailure(formatter, summary, runErr)
	}

	if formatter.Format != "json" {
		formatter.Records(res.Records)
	}
	return formatter.Success(summary)
}
