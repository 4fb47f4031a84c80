package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/pipeline"
	"github.com/roach88/bridgepass/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	PipelineFlags
	Output  string
	Journal string

	// IDGenerator allows overriding the run ID generator (for testing).
	// If nil, defaults to store.UUIDv7Generator.
	IDGenerator store.IDGenerator
}

// RunSummary is the outcome of one pipeline run over an input stream.
type RunSummary struct {
	RunID       string       `json:"run_id,omitempty"`
	Input       string       `json:"input"`
	Output      string       `json:"output,omitempty"`
	Stages      []string     `json:"stages"`
	Types       int          `json:"types"`
	Modified    int          `json:"modified"`
	Excluded    int          `json:"excluded"`
	Infos       int          `json:"infos"`
	Warnings    int          `json:"warnings"`
	Errors      int          `json:"errors"`
	CacheHits   int          `json:"cache_hits"`
	CacheMisses int          `json:"cache_misses"`
	Records     []RecordView `json:"records"`
}

// String renders the text summary line.
func (s RunSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d type(s), %d modified, %d excluded; %d info, %d warning(s)",
		okColor.Sprint("✓"), s.Types, s.Modified, s.Excluded, s.Infos, s.Warnings)
	if s.Output != "" {
		fmt.Fprintf(&b, "\n  output: %s", s.Output)
	}
	if s.RunID != "" {
		fmt.Fprintf(&b, "\n  run: %s", s.RunID)
	}
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Run the passes over a compiled-type stream",
		Long: `Run the configured stages over a compiled-type stream and write the
transformed stream.

The input is a JSON Lines stream of compiled types ("-" reads stdin).
Library types visible to introspection come from --classpath. When a
fatal error aborts the run no output file is written.

Exit codes:
  0 - Run succeeded
  1 - A fatal pass error aborted the run
  2 - Command error (bad config, unreadable input, journal error)

Examples:
  bridgepass run app.jsonl -o app.out.jsonl --classpath runtime/
  bridgepass run app.jsonl -o - --stages register
  bridgepass run app.jsonl -o out.jsonl --journal runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasses(opts, args[0], cmd)
		},
	}

	opts.PipelineFlags.register(cmd)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", `output stream path, "-" for stdout (required)`)
	_ = cmd.MarkFlagRequired("output")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite run journal to record this run in")

	return cmd
}

func runPasses(opts *RunOptions, inputPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	if opts.Output == "-" {
		// The stream owns stdout; the summary moves to stderr.
		formatter.Writer = cmd.ErrOrStderr()
	}

	env, err := loadEnvironment(cmd, &opts.PipelineFlags)
	if err != nil {
		return loadFailure(formatter, "failed to load configuration", err)
	}
	setupLogging(cmd, logLevel(opts.RootOptions, env.Config.Log.SlogLevel()))

	input, err := readInput(cmd, inputPath)
	if err != nil {
		return loadFailure(formatter, "failed to read input", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink diag.Sink
	if opts.Verbose {
		sink = diag.LogSink{}
	}
	p := env.newPipeline(sink)
	res, runErr := p.Run(ctx, input)
	if res == nil {
		return loadFailure(formatter, "failed to configure pipeline", &LoadError{Code: ErrCodeConfig, Message: runErr.Error()})
	}

	summary := summarize(inputPath, p.Stages(), res)

	if env.Config.Journal != "" {
		gen := opts.IDGenerator
		if gen == nil {
			gen = store.UUIDv7Generator{}
		}
		runID, err := journalRun(ctx, env, gen.Generate(), inputPath, p.Stages(), input, res, runErr)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to journal run", err)
		}
		summary.RunID = runID
	}

	if runErr != nil {
		return reportFailure(formatter, summary, runErr)
	}

	if err := writeOutput(opts.Output, res.Types, cmd.OutOrStdout()); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}
	summary.Output = opts.Output

	if formatter.Format == "json" {
		return formatter.encode(CLIResponse{Status: "ok", Data: summary, RunID: summary.RunID})
	}
	formatter.Records(res.Records)
	return formatter.Success(summary)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func summarize(input string, stages []string, res *pipeline.Result) RunSummary {
	s := RunSummary{
		Input:       input,
		Stages:      stages,
		Types:       res.Stats.Types,
		Modified:    res.Stats.Modified,
		Excluded:    res.Stats.Excluded,
		CacheHits:   res.Stats.CacheHits,
		CacheMisses: res.Stats.CacheMisses,
		Records:     recordViews(res.Records),
	}
	for _, r := range res.Records {
		switch r.Severity {
		case diag.SeverityInfo:
			s.Infos++
		case diag.SeverityWarning:
			s.Warnings++
		case diag.SeverityError:
			s.Errors++
		}
	}
	return s
}

// reportFailure prints a failed run. Fatal pass errors exit 1; anything
// else (cancellation, fingerprint failure) is a command error.
func reportFailure(formatter *OutputFormatter, summary RunSummary, runErr error) error {
	code, exit := ErrCodeGeneric, ExitCommandError
	var stageErr *pipeline.StageError
	if errors.As(runErr, &stageErr) {
		code, exit = ErrCodeStageFailed, ExitFailure
	}

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   summary,
			Error:  &CLIError{Code: code, Message: runErr.Error()},
			RunID:  summary.RunID,
		}); err != nil {
			return err
		}
		return WrapExitError(exit, "run failed", runErr)
	}

	for _, r := range summary.Records {
		if r.Severity == diag.SeverityError.String() || formatter.Verbose {
			fmt.Fprintf(formatter.Writer, "[%d] %s %s %s: %s\n", r.Seq, r.Code, r.Severity, r.Stage, r.Message)
		}
	}
	fmt.Fprintf(formatter.Writer, "%s run failed: %v\n", errorColor.Sprint("✗"), runErr)
	if summary.RunID != "" {
		fmt.Fprintf(formatter.Writer, "  run: %s\n", summary.RunID)
	}
	return WrapExitError(exit, "run failed", runErr)
}

// journalRun records the run and returns its ID.
func journalRun(ctx context.Context, env *Environment, runID, inputPath string, stages []string, input []*ir.CompiledType, res *pipeline.Result, runErr error) (string, error) {
	st, err := store.Open(env.Config.Journal)
	if err != nil {
		return "", err
	}
	defer st.Close()

	inputHash, err := ir.StreamFingerprint(input)
	if err != nil {
		return "", err
	}
	out := store.Outcome{Status: store.RunOK, Types: res.Stats.Types, Modified: res.Stats.Modified}
	if runErr != nil {
		out.Status = store.RunFailed
		out.Error = runErr.Error()
	} else if out.OutputHash, err = ir.StreamFingerprint(res.Types); err != nil {
		return "", err
	}

	run := store.Run{
		ID:            runID,
		Input:         absPath(inputPath),
		Profile:       absProfile(env.Profile),
		Classpath:     absPaths(env.Config.Classpath),
		Stages:        stages,
		ToolVersion:   ir.ToolVersion,
		StreamVersion: ir.StreamVersion,
		InputHash:     inputHash,
	}
	// An interrupted run is still journaled as failed.
	if _, err := st.Journal(context.WithoutCancel(ctx), run, res.Records, fingerprints(res.Changes), out); err != nil {
		return "", err
	}
	return runID, nil
}

func fingerprints(changes []pipeline.Change) []store.Fingerprint {
	fps := make([]store.Fingerprint, len(changes))
	for i, c := range changes {
		fps[i] = store.Fingerprint{Index: i, Type: c.Type, Before: c.Before, After: c.After}
	}
	return fps
}

func absPath(path string) string {
	if path == "-" {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

func absProfile(profile string) string {
	if profile == ProfileDefault {
		return profile
	}
	return absPath(profile)
}

func absPaths(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = absPath(p)
	}
	return out
}

// writeOutput writes the stream to path through a temporary file in the
// same directory, so a failed write never leaves a partial output.
func writeOutput(path string, types []*ir.CompiledType, stdout io.Writer) error {
	if path == "-" {
		return ir.WriteStream(stdout, types)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".bridgepass-*.jsonl")
	if err != nil {
		return err
	}
	if err := ir.WriteStream(tmp, types); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
