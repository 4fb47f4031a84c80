package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/testutil"
)

// seedTwoRuns journals a clean run (run-1) and a failed run (run-2).
func seedTwoRuns(t *testing.T) string {
	t.Helper()
	db := filepath.Join(t.TempDir(), "runs.db")
	gen := testutil.NewSequentialIDGenerator("run")
	require.NoError(t, seedJournal(t, gen, db, appInput))
	require.Error(t, seedJournal(t, gen, db, collideInput))
	return db
}

func TestJournal_ListsRuns(t *testing.T) {
	db := seedTwoRuns(t)

	stdout, _, err := execute(t, "journal", "--journal", db, "--format", "json")
	require.NoError(t, err)

	var list RunList
	decodeResponse(t, stdout, &list)
	require.Len(t, list.Runs, 2)
	assert.Equal(t, "run-1", list.Runs[0].ID)
	assert.Equal(t, "ok", list.Runs[0].Status)
	assert.Equal(t, "run-2", list.Runs[1].ID)
	assert.Equal(t, "failed", list.Runs[1].Status)
	assert.Less(t, list.Runs[0].Seq, list.Runs[1].Seq)
}

func TestJournal_ListText(t *testing.T) {
	db := seedTwoRuns(t)

	stdout, _, err := execute(t, "journal", "--journal", db)
	require.NoError(t, err)
	out := lines(stdout)
	require.Len(t, out, 2)
	assert.Contains(t, out[0], "run-1")
	assert.Contains(t, out[0], "ok")
	assert.Contains(t, out[1], "failed")
}

func TestJournal_RunDetail(t *testing.T) {
	db := seedTwoRuns(t)

	stdout, _, err := execute(t, "journal", "--journal", db, "--run", "run-2", "--format", "json")
	require.NoError(t, err)

	var detail RunDetail
	decodeResponse(t, stdout, &detail)
	assert.Equal(t, "run-2", detail.Run.ID)
	assert.Equal(t, "failed", detail.Run.Status)
	assert.Contains(t, detail.Run.Error, "COLLISION")
	require.NotEmpty(t, detail.Records)
	assert.Equal(t, diag.CodeStageFailed, detail.Records[len(detail.Records)-1].Code)
	assert.Empty(t, detail.Fingerprints)
}

func TestJournal_RunDetailText(t *testing.T) {
	db := seedTwoRuns(t)

	stdout, _, err := execute(t, "journal", "--journal", db, "--run", "run-1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "run run-1")
	assert.Contains(t, stdout, "stages:    completion, register")
	assert.Contains(t, stdout, "records (2):")
	assert.Contains(t, stdout, "I100 info completion app/Derived.speak()V")
	assert.Contains(t, stdout, "modified types:\n  app/Derived ")
}

func TestJournal_AmbiguousPrefix(t *testing.T) {
	db := seedTwoRuns(t)

	stdout, _, err := execute(t, "journal", "--journal", db, "--run", "run-", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeJournal, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "ambiguous")
}

func TestJournal_TypeHistory(t *testing.T) {
	db := seedTwoRuns(t)

	stdout, _, err := execute(t, "journal", "--journal", db, "--type", "app/Derived", "--format", "json")
	require.NoError(t, err)

	var hist TypeHistory
	decodeResponse(t, stdout, &hist)
	assert.Equal(t, "app/Derived", hist.Type)
	// The failed run aborted on app/Derived, so only run-1 fingerprinted it.
	require.Len(t, hist.History, 1)
	assert.Equal(t, "run-1", hist.History[0].Run)
	assert.True(t, hist.History[0].Modified)
}

func TestJournal_RunAndTypeExclusive(t *testing.T) {
	db := seedTwoRuns(t)

	_, _, err := execute(t, "journal", "--journal", db, "--run", "run-1", "--type", "app/Derived")
	require.Error(t, err)
}

func TestJournal_NotConfigured(t *testing.T) {
	stdout, _, err := execute(t, "journal", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	resp := decodeResponse(t, stdout, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeJournal, resp.Error.Code)
}
