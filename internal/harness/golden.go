package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/bridgepass/internal/ir"
)

// GoldenDir is where package tests keep trace goldens, relative to the
// package directory. Regenerate with `go test ./internal/harness -update`.
const GoldenDir = "testdata/golden"

// TraceSnapshot is the golden form of a scenario run: its name, the
// expected-failure text if any, and the diagnostic records in seq order.
// The transformed stream is not part of it; assertions cover that.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Failure      string       `json:"failure,omitempty"`
	Trace        []TraceEvent `json:"trace"`
}

// Snapshot renders result as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := result.Trace
	if trace == nil {
		trace = []TraceEvent{}
	}
	return ir.MarshalCanonical(TraceSnapshot{
		ScenarioName: name,
		Failure:      result.Failure,
		Trace:        trace,
	})
}

// RunWithGolden runs scenario and compares its snapshot with
// GoldenDir/<name>.golden. Mismatches fail t through goldie; the returned
// error is for scenarios that could not run.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()
	snap, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir(GoldenDir),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snap)
	return nil
}
