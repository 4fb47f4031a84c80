package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registerScenario = `name: cli_register
description: "A bridged type without a static initializer gets one"
stages: [register]
input:
  - name: app/View
    super: org/moe/natj/general/NativeObject
assertions:
  - type: record
    code: I200
    type_name: app/View
    count: %d
`

const registerGolden = `{"scenario_name":"cli_register","trace":[{"code":"I200","message":"synthesized static initializer calling org/moe/natj/general/NatJ.register()V","method":"<clinit>()V","seq":1,"severity":"info","stage":"register","type":"app/View"}]}`

// writeScenario lays out <root>/scenarios/cli_register.yaml and returns
// the scenarios directory.
func writeScenario(t *testing.T, root string, count int) string {
	t.Helper()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	body := []byte(fmt.Sprintf(registerScenario, count))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cli_register.yaml"), body, 0644))
	return dir
}

func TestTest_NoGoldenPasses(t *testing.T) {
	dir := writeScenario(t, t.TempDir(), 1)

	stdout, _, err := execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)

	var res TestResult
	decodeResponse(t, stdout, &res)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, 1, res.Passed)
	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, "cli_register", res.Scenarios[0].Name)
	assert.Equal(t, GoldenMissing, res.Scenarios[0].Golden)
}

func TestTest_UpdateThenMatch(t *testing.T) {
	root := t.TempDir()
	dir := writeScenario(t, root, 1)

	stdout, _, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, stdout, "cli_register (golden updated)")

	golden, err := os.ReadFile(filepath.Join(root, "golden", "cli_register.golden"))
	require.NoError(t, err)
	assert.Equal(t, registerGolden, string(golden))

	stdout, _, err = execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)
	var res TestResult
	decodeResponse(t, stdout, &res)
	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, GoldenMatch, res.Scenarios[0].Golden)
}

func TestTest_GoldenMismatchFails(t *testing.T) {
	root := t.TempDir()
	dir := writeScenario(t, root, 1)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "golden", "cli_register.golden"), []byte(`{}`), 0644))

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "does not match golden file")
	assert.Contains(t, stdout, "0 passed, 1 failed, 1 total")
}

func TestTest_GoldenDirFlag(t *testing.T) {
	dir := writeScenario(t, t.TempDir(), 1)
	goldenDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(goldenDir, "cli_register.golden"), []byte(registerGolden+"\n"), 0644))

	stdout, _, err := execute(t, "test", filepath.Join(dir, "cli_register.yaml"), "--golden-dir", goldenDir, "--format", "json")
	require.NoError(t, err)
	var res TestResult
	decodeResponse(t, stdout, &res)
	require.Len(t, res.Scenarios, 1)
	assert.Equal(t, GoldenMatch, res.Scenarios[0].Golden)
}

func TestTest_AssertionFailure(t *testing.T) {
	dir := writeScenario(t, t.TempDir(), 2)

	stdout, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var res TestResult
	resp := decodeResponse(t, stdout, &res)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
	require.Len(t, res.Scenarios, 1)
	assert.False(t, res.Scenarios[0].Pass)
	assert.NotEmpty(t, res.Scenarios[0].Errors)
}

func TestTest_Filter(t *testing.T) {
	dir := writeScenario(t, t.TempDir(), 1)

	stdout, _, err := execute(t, "test", dir, "--filter", "nomatch*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No scenarios found.")

	stdout, _, err = execute(t, "test", dir, "--filter", "cli_*")
	require.NoError(t, err)
	assert.Contains(t, stdout, "All scenarios passed")
}

func TestTest_LoadErrorReported(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: bad\nbogus: 1\n"), 0644))

	stdout, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "failed to load scenario")
}

func TestTest_MissingPath(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("testdata", "golden", "x.golden"),
		goldenFilePath(filepath.Join("testdata", "scenarios", "x.yaml"), "x", ""))
	assert.Equal(t,
		filepath.Join("g", "x.golden"),
		goldenFilePath(filepath.Join("testdata", "scenarios", "x.yaml"), "x", "g"))
}
