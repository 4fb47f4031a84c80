package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/bridgepass/internal/ir"
)

// createTestStore creates a new journal in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:            id,
		Input:         "in.jsonl",
		Profile:       "default",
		Classpath:     []string{"lib/runtime.jsonl"},
		Stages:        []string{"completion", "register"},
		ToolVersion:   ir.ToolVersion,
		StreamVersion: ir.StreamVersion,
		InputHash:     "in-hash",
	}
}

// beginTestRun begins a run and fails the test on error.
func beginTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run, err := s.BeginRun(context.Background(), createTestRun(id))
	if err != nil {
		t.Fatalf("BeginRun(%s) failed: %v", id, err)
	}
	return run
}
