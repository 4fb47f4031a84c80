package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/bridgepass/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Config  string
	Journal string
	Run     string // run ID or unique prefix
	Type    string // type name for fingerprint history
}

// RunView is the JSON shape of a journaled run.
type RunView struct {
	ID            string   `json:"id"`
	Seq           int64    `json:"seq"`
	Status        string   `json:"status"`
	Input         string   `json:"input"`
	Profile       string   `json:"profile"`
	Classpath     []string `json:"classpath"`
	Stages        []string `json:"stages"`
	ToolVersion   string   `json:"tool_version"`
	StreamVersion string   `json:"stream_version"`
	Types         int      `json:"types"`
	Modified      int      `json:"modified"`
	InputHash     string   `json:"input_hash"`
	OutputHash    string   `json:"output_hash,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// FingerprintView is the JSON shape of one type's before/after hashes.
type FingerprintView struct {
	Run      string `json:"run,omitempty"`
	Index    int    `json:"index"`
	Type     string `json:"type"`
	Before   string `json:"before"`
	After    string `json:"after"`
	Modified bool   `json:"modified"`
}

// RunList is the journal listing.
type RunList struct {
	Runs []RunView `json:"runs"`
}

// String renders one line per run.
func (l RunList) String() string {
	if len(l.Runs) == 0 {
		return "journal is empty"
	}
	var b strings.Builder
	for i, r := range l.Runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-36s  %s  %d type(s), %d modified  %s", r.ID, statusMark(r.Status), r.Types, r.Modified, r.Input)
	}
	return b.String()
}

// RunDetail is one run with its records and fingerprints.
type RunDetail struct {
	Run          RunView           `json:"run"`
	Records      []RecordView      `json:"records"`
	Fingerprints []FingerprintView `json:"fingerprints"`
}

// String renders the run header, its records, and the modified types.
func (d RunDetail) String() string {
	var b strings.Builder
	r := d.Run
	fmt.Fprintf(&b, "run %s (#%d) %s\n", r.ID, r.Seq, statusMark(r.Status))
	fmt.Fprintf(&b, "  input:     %s\n", r.Input)
	fmt.Fprintf(&b, "  profile:   %s\n", r.Profile)
	fmt.Fprintf(&b, "  classpath: %s\n", strings.Join(r.Classpath, ", "))
	fmt.Fprintf(&b, "  stages:    %s\n", strings.Join(r.Stages, ", "))
	fmt.Fprintf(&b, "  version:   %s (stream v%s)\n", r.ToolVersion, r.StreamVersion)
	fmt.Fprintf(&b, "  types:     %d, %d modified\n", r.Types, r.Modified)
	if r.Error != "" {
		fmt.Fprintf(&b, "  error:     %s\n", r.Error)
	}

	fmt.Fprintf(&b, "\nrecords (%d):\n", len(d.Records))
	for _, rec := range d.Records {
		fmt.Fprintf(&b, "  [%d] %s %s %s", rec.Seq, rec.Code, rec.Severity, rec.Stage)
		if rec.Type != "" {
			fmt.Fprintf(&b, " %s", rec.Type)
			if rec.Method != "" {
				fmt.Fprintf(&b, ".%s", rec.Method)
			}
		}
		fmt.Fprintf(&b, ": %s\n", rec.Message)
	}

	fmt.Fprintf(&b, "\nmodified types:\n")
	for _, fp := range d.Fingerprints {
		if fp.Modified {
			fmt.Fprintf(&b, "  %s %s -> %s\n", fp.Type, shortHash(fp.Before), shortHash(fp.After))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// TypeHistory is every recorded fingerprint of one type.
type TypeHistory struct {
	Type    string            `json:"type"`
	History []FingerprintView `json:"history"`
}

// String renders one line per run that saw the type.
func (h TypeHistory) String() string {
	if len(h.History) == 0 {
		return "no runs recorded " + h.Type
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s:", h.Type)
	for _, fp := range h.History {
		mark := "unchanged"
		if fp.Modified {
			mark = "modified"
		}
		fmt.Fprintf(&b, "\n  %s  %s -> %s  %s", fp.Run, shortHash(fp.Before), shortHash(fp.After), mark)
	}
	return b.String()
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the run journal",
		Long: `Inspect the SQLite run journal written by "run --journal".

Without flags, lists every run in journal order. --run shows one run
with its diagnostic records and per-type fingerprints; an unambiguous ID
prefix is enough. --type shows every fingerprint recorded for a type
across runs.

Examples:
  bridgepass journal --journal runs.db
  bridgepass journal --journal runs.db --run 0192
  bridgepass journal --journal runs.db --type app/View --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (default: ./bridgepass.yaml if present)")
	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite run journal (default: journal from config)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show one run by ID or unique prefix")
	cmd.Flags().StringVar(&opts.Type, "type", "", "show fingerprint history for a type")
	cmd.MarkFlagsMutuallyExclusive("run", "type")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openJournal(cmd, opts.Config)
	if err != nil {
		return loadFailure(formatter, "failed to open journal", err)
	}
	defer st.Close()

	ctx := commandContext(cmd)
	var data any
	switch {
	case opts.Run != "":
		data, err = runDetail(ctx, st, opts.Run)
	case opts.Type != "":
		data, err = typeHistory(ctx, st, opts.Type)
	default:
		data, err = runList(ctx, st)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}
	return formatter.Success(data)
}

// openJournal opens the journal named by --journal or the config file.
func openJournal(cmd *cobra.Command, configPath string) (*store.Store, error) {
	cfg, err := loadConfig(cmd, &PipelineFlags{Config: configPath})
	if err != nil {
		return nil, err
	}
	if cfg.Journal == "" {
		return nil, &LoadError{Code: ErrCodeJournal, Message: "no journal configured (use --journal or set journal in bridgepass.yaml)"}
	}
	st, err := store.Open(cfg.Journal)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeJournal, Message: err.Error()}
	}
	return st, nil
}

func runList(ctx context.Context, st *store.Store) (RunList, error) {
	runs, err := st.ReadRuns(ctx)
	if err != nil {
		return RunList{}, err
	}
	list := RunList{Runs: make([]RunView, len(runs))}
	for i, r := range runs {
		list.Runs[i] = runView(r)
	}
	return list, nil
}

func runDetail(ctx context.Context, st *store.Store, prefix string) (RunDetail, error) {
	run, err := st.FindRun(ctx, prefix)
	if err != nil {
		return RunDetail{}, err
	}
	records, err := st.ReadRecords(ctx, run.ID)
	if err != nil {
		return RunDetail{}, err
	}
	fps, err := st.ReadFingerprints(ctx, run.ID)
	if err != nil {
		return RunDetail{}, err
	}
	return RunDetail{
		Run:          runView(run),
		Records:      recordViews(records),
		Fingerprints: fingerprintViews(fps),
	}, nil
}

func typeHistory(ctx context.Context, st *store.Store, typeName string) (TypeHistory, error) {
	fps, err := st.TypeHistory(ctx, typeName)
	if err != nil {
		return TypeHistory{}, err
	}
	return TypeHistory{Type: typeName, History: fingerprintViews(fps)}, nil
}

func runView(r store.Run) RunView {
	return RunView{
		ID:            r.ID,
		Seq:           r.Seq,
		Status:        string(r.Status),
		Input:         r.Input,
		Profile:       r.Profile,
		Classpath:     nonNil(r.Classpath),
		Stages:        nonNil(r.Stages),
		ToolVersion:   r.ToolVersion,
		StreamVersion: r.StreamVersion,
		Types:         r.Types,
		Modified:      r.Modified,
		InputHash:     r.InputHash,
		OutputHash:    r.OutputHash,
		Error:         r.Error,
	}
}

func fingerprintViews(fps []store.Fingerprint) []FingerprintView {
	out := make([]FingerprintView, len(fps))
	for i, fp := range fps {
		out[i] = FingerprintView{
			Run:      fp.RunID,
			Index:    fp.Index,
			Type:     fp.Type,
			Before:   fp.Before,
			After:    fp.After,
			Modified: fp.Modified(),
		}
	}
	return out
}

func statusMark(status string) string {
	switch store.RunStatus(status) {
	case store.RunOK:
		return okColor.Sprint("ok")
	case store.RunFailed:
		return errorColor.Sprint("failed")
	default:
		return warningColor.Sprint(status)
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
