package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/bridgepass/internal/diag"
)

func TestBeginRun_AssignsSequence(t *testing.T) {
	s := createTestStore(t)

	r1 := beginTestRun(t, s, "run-b")
	r2 := beginTestRun(t, s, "run-a")

	if r1.Seq != 1 || r2.Seq != 2 {
		t.Errorf("seqs = %d, %d; want 1, 2", r1.Seq, r2.Seq)
	}
	if r1.Status != RunRunning {
		t.Errorf("status = %q, want running", r1.Status)
	}
}

func TestBeginRun_RequiresID(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.BeginRun(context.Background(), Run{}); err == nil {
		t.Fatal("BeginRun() without id should fail")
	}
}

func TestBeginRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	beginTestRun(t, s, "run-1")
	if _, err := s.BeginRun(context.Background(), createTestRun("run-1")); err == nil {
		t.Fatal("BeginRun() with duplicate id should fail")
	}
}

func TestFinishRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestRun(t, s, "run-1")

	err := s.FinishRun(ctx, "run-1", Outcome{Status: RunOK, Types: 3, Modified: 1, OutputHash: "out-hash"})
	if err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	run, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if run.Status != RunOK || run.Types != 3 || run.Modified != 1 || run.OutputHash != "out-hash" {
		t.Errorf("unexpected run after finish: %+v", run)
	}

	// Finishing twice fails
	err = s.FinishRun(ctx, "run-1", Outcome{Status: RunFailed})
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("second FinishRun() = %v, want ErrRunNotFound", err)
	}
}

func TestFinishRun_Errors(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestRun(t, s, "run-1")

	if err := s.FinishRun(ctx, "run-1", Outcome{Status: RunRunning}); err == nil {
		t.Error("FinishRun() with running status should fail")
	}
	if err := s.FinishRun(ctx, "nope", Outcome{Status: RunOK}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun(unknown) = %v, want ErrRunNotFound", err)
	}
}

func TestWriteRecords_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestRun(t, s, "run-1")

	records := []diag.Record{
		{Seq: 1, Severity: diag.SeverityInfo, Code: diag.CodeTagsInjected, Stage: "completion", Type: "app/View", Method: "speak()V", Message: "injected 1 tag(s)"},
		{Seq: 2, Severity: diag.SeverityWarning, Code: diag.CodeTypeNotFound, Stage: "completion", Type: "app/Lost", Message: "missing"},
	}
	for i := 0; i < 2; i++ {
		if err := s.WriteRecords(ctx, "run-1", records); err != nil {
			t.Fatalf("WriteRecords() pass %d failed: %v", i, err)
		}
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("record count = %d, want 2", count)
	}
}

func TestWriteRecords_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.WriteRecords(context.Background(), "nope", []diag.Record{{Seq: 1, Code: "I100", Message: "x"}})
	if err == nil {
		t.Fatal("WriteRecords() for unknown run should fail (foreign key)")
	}
}

func TestWriteFingerprints_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	beginTestRun(t, s, "run-1")

	fps := []Fingerprint{
		{Index: 0, Type: "app/A", Before: "h1", After: "h1"},
		{Index: 1, Type: "app/B", Before: "h2", After: "h3"},
	}
	for i := 0; i < 2; i++ {
		if err := s.WriteFingerprints(ctx, "run-1", fps); err != nil {
			t.Fatalf("WriteFingerprints() pass %d failed: %v", i, err)
		}
	}

	got, err := s.ReadFingerprints(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Modified() || !got[1].Modified() {
		t.Errorf("Modified() flags wrong: %+v", got)
	}
}
