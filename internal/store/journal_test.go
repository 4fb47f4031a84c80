package store

import (
	"context"
	"testing"

	"github.com/roach88/bridgepass/internal/diag"
)

func TestJournal_WritesWholeRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	records := []diag.Record{
		{Seq: 1, Severity: diag.SeverityInfo, Code: diag.CodeTagsInjected, Stage: "completion", Type: "a/B", Method: "m()V", Message: "injected"},
		{Seq: 2, Severity: diag.SeverityInfo, Code: diag.CodeClinitSynthesized, Stage: "register", Type: "a/B", Method: "<clinit>()V", Message: "synthesized"},
	}
	fps := []Fingerprint{{Index: 0, Type: "a/B", Before: "h1", After: "h2"}}

	run, err := s.Journal(ctx, createTestRun("run-1"), records, fps, Outcome{Status: RunOK, Types: 1, Modified: 1, OutputHash: "out"})
	if err != nil {
		t.Fatalf("Journal() failed: %v", err)
	}
	if run.Seq != 1 || run.Status != RunOK || run.OutputHash != "out" {
		t.Errorf("unexpected returned run: %+v", run)
	}

	stored, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if stored.Status != RunOK || stored.Types != 1 || stored.Modified != 1 {
		t.Errorf("unexpected stored run: %+v", stored)
	}

	gotRecords, err := s.ReadRecords(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRecords() failed: %v", err)
	}
	if len(gotRecords) != 2 || gotRecords[1].Method != "<clinit>()V" {
		t.Errorf("records = %+v", gotRecords)
	}

	gotFps, err := s.ReadFingerprints(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadFingerprints() failed: %v", err)
	}
	if len(gotFps) != 1 || !gotFps[0].Modified() {
		t.Errorf("fingerprints = %+v", gotFps)
	}
}

func TestJournal_FailedRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Journal(ctx, createTestRun("run-1"), nil, nil, Outcome{Status: RunFailed, Error: "boom"})
	if err != nil {
		t.Fatalf("Journal() failed: %v", err)
	}
	stored, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if stored.Status != RunFailed || stored.Error != "boom" {
		t.Errorf("unexpected stored run: %+v", stored)
	}
}

func TestJournal_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestRun(t, s, "run-1")

	if _, err := s.Journal(ctx, createTestRun("run-1"), nil, nil, Outcome{Status: RunOK}); err == nil {
		t.Fatal("Journal() with duplicate id should fail")
	}
}
