package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its trace against the golden file of the same name.
func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario failed: %v", result.Errors)
		})
	}
}

func TestRun_ScenarioD_Output(t *testing.T) {
	result, err := RunFile(filepath.Join("testdata", "scenarios", "scenario_d_synthesize_clinit.yaml"))
	require.NoError(t, err)
	require.True(t, result.Pass, "%v", result.Errors)

	view := result.OutputType("app/View")
	require.NotNil(t, view)
	clinit, idx := view.Clinit()
	require.NotNil(t, clinit)
	assert.Equal(t, len(view.Methods)-1, idx, "synthesized initializer is appended")
	assert.Equal(t, []string{
		"invokestatic org/moe/natj/general/NatJ.register()V",
		"return",
	}, RenderInstructions(clinit.Code))
}

func TestRun_UnexpectedFailureReported(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_c_parameter_collision.yaml"))
	require.NoError(t, err)
	scenario.ExpectError = nil

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "unexpected run failure")
	assert.Nil(t, result.Output)
}

func TestRun_ExpectedFailureMismatch(t *testing.T) {
	tests := []struct {
		name   string
		expect ExpectError
		want   string
	}{
		{name: "wrong stage", expect: ExpectError{Stage: "register"}, want: "expected failure in stage register"},
		{name: "wrong code", expect: ExpectError{Stage: "completion", Code: "PLACEMENT"}, want: "expected error code PLACEMENT"},
		{name: "wrong type", expect: ExpectError{Stage: "completion", Type: "app/Other"}, want: "expected failure on type app/Other"},
		{name: "wrong tags", expect: ExpectError{Stage: "completion", Tags: []string{"LX;"}}, want: "expected offending tags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_c_parameter_collision.yaml"))
			require.NoError(t, err)
			expect := tt.expect
			scenario.ExpectError = &expect

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			assert.Contains(t, result.Errors[0], tt.want)
		})
	}
}

func TestRun_ExpectedFailureDidNotHappen(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "scenario_d_synthesize_clinit.yaml"))
	require.NoError(t, err)
	scenario.ExpectError = &ExpectError{Stage: "register"}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "but the run succeeded")
}

func TestRun_ConfigurationErrors(t *testing.T) {
	t.Run("unknown stage", func(t *testing.T) {
		s, err := ParseScenario([]byte(minimalScenario + "stages: [bogus]\n"))
		require.NoError(t, err)
		_, err = Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to configure pipeline")
	})

	t.Run("missing classpath file", func(t *testing.T) {
		s, err := ParseScenario([]byte(minimalScenario))
		require.NoError(t, err)
		s.Classpath = []string{filepath.Join(t.TempDir(), "missing.jsonl")}
		_, err = Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "classpath")
	})

	t.Run("missing registry profile", func(t *testing.T) {
		s, err := ParseScenario([]byte(minimalScenario))
		require.NoError(t, err)
		s.Registry = filepath.Join(t.TempDir(), "missing.cue")
		_, err = Run(s)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load registry")
	})
}

func TestSnapshot_OmitsEmptyFields(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{{Seq: 1, Severity: "info", Code: "I200", Message: "m"}}

	got, err := Snapshot("x", result)
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"x","trace":[{"code":"I200","message":"m","seq":1,"severity":"info"}]}`, string(got))
}

func TestSnapshot_EmptyTrace(t *testing.T) {
	result := &Result{Failure: "COLLISION"}

	got, err := Snapshot("x", result)
	require.NoError(t, err)
	assert.Equal(t, `{"failure":"COLLISION","scenario_name":"x","trace":[]}`, string(got))
}
