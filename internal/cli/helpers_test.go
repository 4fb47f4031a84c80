package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bridgepass/internal/store"
)

// Library streams under testdata. base.jsonl declares app/Base with a
// marked speak()V (Selector, Owned) and a marked count(I)V whose
// parameter carries NUInt.
const (
	platformLib   = "testdata/platform.jsonl"
	baseLib       = "testdata/base.jsonl"
	appInput      = "testdata/app.jsonl"
	collideInput  = "testdata/collide.jsonl"
	classpathFlag = "--classpath=" + platformLib + "," + baseLib
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// decodeResponse parses a JSON CLI response and decodes its data into data
// when data is non-nil.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
		RunID  string          `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "response: %s", out)
	if data != nil {
		require.NotEmpty(t, raw.Data, "response has no data: %s", out)
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error, RunID: raw.RunID}
}

// seedJournal executes run with a fixed ID generator and a journal.
func seedJournal(t *testing.T, gen store.IDGenerator, dbPath, input string) error {
	t.Helper()
	opts := &RunOptions{RootOptions: &RootOptions{Format: "json"}, IDGenerator: gen}
	cmd := newRunCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	out := filepath.Join(t.TempDir(), "out.jsonl")
	cmd.SetArgs([]string{input, "-o", out, classpathFlag, "--journal", dbPath})
	return cmd.Execute()
}

// copyFile copies a testdata file into dir and returns the new path.
func copyFile(t *testing.T, src, dir string) string {
	t.Helper()
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	dst := filepath.Join(dir, filepath.Base(src))
	require.NoError(t, os.WriteFile(dst, data, 0644))
	return dst
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
