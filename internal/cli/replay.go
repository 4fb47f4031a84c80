package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bridgepass/internal/config"
	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Config  string
	Journal string
	Run     string // optional - latest run when empty
}

// ReplayResult is the outcome of re-running a journaled run.
type ReplayResult struct {
	RunID          string   `json:"run_id"`
	Input          string   `json:"input"`
	Stages         []string `json:"stages"`
	OriginalStatus string   `json:"original_status"`
	ReplayStatus   string   `json:"replay_status"`
	OutputHash     string   `json:"output_hash,omitempty"`
	Records        int      `json:"records"`
	Deterministic  bool     `json:"deterministic"`
	Differences    []string `json:"differences"`
}

// String renders the verdict and any differences.
func (r ReplayResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %s\n", r.RunID, r.Input)
	fmt.Fprintf(&b, "  stages: %s\n", strings.Join(r.Stages, ", "))
	fmt.Fprintf(&b, "  status: %s (replayed: %s)\n", r.OriginalStatus, r.ReplayStatus)
	fmt.Fprintf(&b, "  records: %d\n", r.Records)
	if r.Deterministic {
		fmt.Fprintf(&b, "%s deterministic", okColor.Sprint("✓"))
		return b.String()
	}
	fmt.Fprintf(&b, "%s replay differs:", errorColor.Sprint("✗"))
	for _, d := range r.Differences {
		fmt.Fprintf(&b, "\n  - %s", d)
	}
	return b.String()
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a journaled run and verify determinism",
		Long: `Re-run a journaled run from its recorded input, registry profile,
classpath, and stages, then compare the output hash and diagnostic records
with what the journal holds.

The input file must still hash to the recorded input hash; runs that read
stdin cannot be replayed.

Exit codes:
  0 - Replay matched the journal
  1 - Replay differs (non-determinism detected)
  2 - Command error (journal missing, input changed, etc.)

Examples:
  bridgepass replay --journal runs.db
  bridgepass replay --journal runs.db --run 0192
  bridgepass replay --journal runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default: ./bridgepass.yaml if present)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite run journal (default: journal from config)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "run ID or unique prefix (default: latest run)")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := commandContext(cmd)

	st, err := openJournal(cmd, opts.Config)
	if err != nil {
		return loadFailure(formatter, "failed to open journal", err)
	}
	defer st.Close()

	run, err := selectRun(ctx, st, opts.Run)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find run", err)
	}
	journaled, err := st.ReadRecords(ctx, run.ID)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read records", err)
	}

	result, err := replayRun(ctx, cmd, run, journaled)
	if err != nil {
		return loadFailure(formatter, "failed to replay run", err)
	}

	if !result.Deterministic {
		if formatter.Format == "json" {
			_ = formatter.encode(CLIResponse{
				Status: "error",
				Data:   result,
				Error:  &CLIError{Code: ErrCodeGeneric, Message: "replay differs from journal"},
				RunID:  result.RunID,
			})
		} else {
			fmt.Fprintln(formatter.Writer, result)
		}
		return NewExitError(ExitFailure, "replay differs from journal")
	}
	return formatter.Success(result)
}

func selectRun(ctx context.Context, st *store.Store, prefix string) (store.Run, error) {
	if prefix == "" {
		return st.LatestRun(ctx)
	}
	return st.FindRun(ctx, prefix)
}

// replayRun rebuilds the run's environment and runs it again.
func replayRun(ctx context.Context, cmd *cobra.Command, run store.Run, journaled []diag.Record) (ReplayResult, error) {
	if run.Input == "-" {
		return ReplayResult{}, &LoadError{Code: ErrCodeInput, Message: fmt.Sprintf("run %s read stdin and cannot be replayed", run.ID)}
	}
	input, err := readInput(cmd, run.Input)
	if err != nil {
		return ReplayResult{}, err
	}
	inputHash, err := ir.StreamFingerprint(input)
	if err != nil {
		return ReplayResult{}, &LoadError{Code: ErrCodeInput, Message: err.Error()}
	}
	if inputHash != run.InputHash {
		return ReplayResult{}, &LoadError{Code: ErrCodeInput, Message: fmt.Sprintf("input %s changed since run %s", run.Input, run.ID)}
	}

	profile := run.Profile
	if profile == ProfileDefault {
		profile = ""
	}
	reg, profile, err := loadRegistry(profile)
	if err != nil {
		return ReplayResult{}, err
	}
	library, err := loadClasspath(run.Classpath)
	if err != nil {
		return ReplayResult{}, err
	}
	env := &Environment{
		Config:   &config.Config{Classpath: run.Classpath, Stages: run.Stages},
		Registry: reg,
		Profile:  profile,
		Library:  library,
	}

	res, runErr := env.newPipeline(nil).Run(ctx, input)
	if res == nil {
		return ReplayResult{}, &LoadError{Code: ErrCodeConfig, Message: runErr.Error()}
	}
	if errors.Is(runErr, context.Canceled) {
		return ReplayResult{}, runErr
	}

	result := ReplayResult{
		RunID:          run.ID,
		Input:          run.Input,
		Stages:         run.Stages,
		OriginalStatus: string(run.Status),
		ReplayStatus:   string(store.RunOK),
		Records:        len(res.Records),
	}
	if runErr != nil {
		result.ReplayStatus = string(store.RunFailed)
	} else if result.OutputHash, err = ir.StreamFingerprint(res.Types); err != nil {
		return ReplayResult{}, err
	}

	result.Differences = compareRun(run, result, journaled, res.Records)
	result.Deterministic = len(result.Differences) == 0
	return result, nil
}

// compareRun lists every way the replay differs from the journal.
func compareRun(run store.Run, replay ReplayResult, journaled, replayed []diag.Record) []string {
	diffs := []string{}
	if string(run.Status) != replay.ReplayStatus {
		diffs = append(diffs, fmt.Sprintf("status: journal %s, replay %s", run.Status, replay.ReplayStatus))
	}
	if run.OutputHash != replay.OutputHash {
		diffs = append(diffs, fmt.Sprintf("output hash: journal %q, replay %q", shortHash(run.OutputHash), shortHash(replay.OutputHash)))
	}
	if len(journaled) != len(replayed) {
		diffs = append(diffs, fmt.Sprintf("record count: journal %d, replay %d", len(journaled), len(replayed)))
	}
	for i := range min(len(journaled), len(replayed)) {
		if journaled[i] != replayed[i] {
			diffs = append(diffs, fmt.Sprintf("record %d: journal %q, replay %q", i+1, journaled[i], replayed[i]))
		}
	}
	return diffs
}
