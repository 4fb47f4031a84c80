package store

import (
	"context"
	"fmt"

	"github.com/roach88/bridgepass/internal/diag"
)

// Journal writes a complete run in the order a crash-safe writer would:
// the run row first, then its records and fingerprints, then the outcome.
// A crash part way leaves the run in the running state, which marks it as
// incomplete on replay.
func (s *Store) Journal(ctx context.Context, run Run, records []diag.Record, fps []Fingerprint, out Outcome) (Run, error) {
	run, err := s.BeginRun(ctx, run)
	if err != nil {
		return Run{}, err
	}
	if err := s.WriteRecords(ctx, run.ID, records); err != nil {
		return run, fmt.Errorf("journal %s: %w", run.ID, err)
	}
	if err := s.WriteFingerprints(ctx, run.ID, fps); err != nil {
		return run, fmt.Errorf("journal %s: %w", run.ID, err)
	}
	if err := s.FinishRun(ctx, run.ID, out); err != nil {
		return run, fmt.Errorf("journal %s: %w", run.ID, err)
	}

	run.Status = out.Status
	run.Error = out.Error
	run.Types = out.Types
	run.Modified = out.Modified
	run.OutputHash = out.OutputHash
	return run, nil
}
