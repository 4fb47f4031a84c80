package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/bridgepass/internal/completion"
	"github.com/roach88/bridgepass/internal/introspect"
	"github.com/roach88/bridgepass/internal/ir"
	"github.com/roach88/bridgepass/internal/pipeline"
	"github.com/roach88/bridgepass/internal/registry"
	"github.com/roach88/bridgepass/internal/store"
	"github.com/roach88/bridgepass/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory journal for isolation. The trace
// is read back from the journal rather than taken from the pipeline, so
// what a scenario asserts is what `bridgepass journal` would show.
//
// Execution flow:
// 1. Load the registry profile and the library universe
// 2. Decode the input stream
// 3. Run the pipeline and journal the outcome
// 4. Match the outcome against expect_error
// 5. Evaluate assertions
//
// A non-nil error means the scenario itself could not be executed
// (bad profile, unreadable classpath, invalid stage list). Run failures
// the scenario did not expect are reported through Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	reg, profile, err := loadRegistry(scenario.Registry)
	if err != nil {
		return nil, err
	}

	library, err := loadLibrary(scenario)
	if err != nil {
		return nil, err
	}

	input, err := scenario.InputTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to decode input: %w", err)
	}

	opts := []pipeline.Option{pipeline.WithLibrary(library...)}
	if len(scenario.Stages) > 0 {
		opts = append(opts, pipeline.WithStages(scenario.Stages...))
	}
	p := pipeline.New(reg, opts...)

	res, runErr := p.Run(ctx, input)
	if res == nil {
		return nil, fmt.Errorf("failed to configure pipeline: %w", runErr)
	}

	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer st.Close()

	runID := testutil.NewFixedIDGenerator("scenario-" + scenario.Name).Generate()
	if err := journal(ctx, st, runID, profile, p.Stages(), input, res, runErr); err != nil {
		return nil, err
	}
	records, err := st.ReadRecords(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back trace: %w", err)
	}

	result := NewResult()
	for _, rec := range records {
		result.AddRecord(rec)
	}
	result.Input = input
	result.Output = res.Types

	if runErr != nil {
		result.Failure = runErr.Error()
	}
	if msg := matchOutcome(scenario.ExpectError, runErr); msg != "" {
		result.AddError(msg)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// RunFile loads a scenario file and runs it.
func RunFile(path string) (*Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, err
	}
	return Run(scenario)
}

func loadRegistry(path string) (*registry.Registry, string, error) {
	if path == "" {
		reg, err := registry.Default()
		if err != nil {
			return nil, "", fmt.Errorf("failed to load default registry: %w", err)
		}
		return reg, "default", nil
	}
	reg, err := registry.LoadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load registry %s: %w", path, err)
	}
	return reg, path, nil
}

// loadLibrary assembles the platform types, classpath files, and inline
// library types. Inline types replace classpath types of the same name.
func loadLibrary(scenario *Scenario) ([]*ir.CompiledType, error) {
	cp := introspect.NewClasspath(testutil.Platform()...)
	for _, path := range scenario.Classpath {
		if err := cp.Load(path); err != nil {
			return nil, fmt.Errorf("classpath: %w", err)
		}
	}

	inline, err := scenario.LibraryTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to decode library: %w", err)
	}
	cp.Add(inline...)
	return cp.Types(), nil
}

func journal(ctx context.Context, st *store.Store, runID, profile string, stages []string, input []*ir.CompiledType, res *pipeline.Result, runErr error) error {
	inputHash, err := ir.StreamFingerprint(input)
	if err != nil {
		return fmt.Errorf("failed to fingerprint input: %w", err)
	}

	out := store.Outcome{
		Status:   store.RunOK,
		Types:    res.Stats.Types,
		Modified: res.Stats.Modified,
	}
	if runErr != nil {
		out.Status = store.RunFailed
		out.Error = runErr.Error()
	} else if out.OutputHash, err = ir.StreamFingerprint(res.Types); err != nil {
		return fmt.Errorf("failed to fingerprint output: %w", err)
	}

	fps := make([]store.Fingerprint, len(res.Changes))
	for i, c := range res.Changes {
		fps[i] = store.Fingerprint{Index: i, Type: c.Type, Before: c.Before, After: c.After}
	}

	run := store.Run{
		ID:            runID,
		Input:         "scenario",
		Profile:       profile,
		Stages:        stages,
		ToolVersion:   ir.ToolVersion,
		StreamVersion: ir.StreamVersion,
		InputHash:     inputHash,
	}
	if _, err := st.Journal(ctx, run, res.Records, fps, out); err != nil {
		return fmt.Errorf("failed to journal run: %w", err)
	}
	return nil
}

// matchOutcome compares the run error with the expected failure and
// returns a failure message, or "" when they agree.
func matchOutcome(want *ExpectError, runErr error) string {
	if want == nil {
		if runErr != nil {
			return fmt.Sprintf("unexpected run failure: %v", runErr)
		}
		return ""
	}
	if runErr == nil {
		return fmt.Sprintf("expected failure in stage %s, but the run succeeded", want.Stage)
	}

	var serr *pipeline.StageError
	if !errors.As(runErr, &serr) {
		return fmt.Sprintf("expected stage failure, got: %v", runErr)
	}
	if serr.Stage != want.Stage {
		return fmt.Sprintf("expected failure in stage %s, got stage %s: %v", want.Stage, serr.Stage, runErr)
	}
	if want.Type != "" && serr.Type != want.Type {
		return fmt.Sprintf("expected failure on type %s, got %s", want.Type, serr.Type)
	}

	if want.Code == "" && len(want.Tags) == 0 {
		return ""
	}
	var cerr *completion.Error
	if !errors.As(runErr, &cerr) {
		return fmt.Sprintf("expected completion error %s, got: %v", want.Code, runErr)
	}
	if want.Code != "" && string(cerr.Code) != want.Code {
		return fmt.Sprintf("expected error code %s, got %s: %v", want.Code, cerr.Code, runErr)
	}
	if len(want.Tags) > 0 && !slices.Equal(cerr.Tags, want.Tags) {
		return fmt.Sprintf("expected offending tags %v, got %v", want.Tags, cerr.Tags)
	}
	return ""
}
