package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/bridgepass/internal/diag"
)

// BeginRun inserts a run in the running state and returns it with its
// journal sequence number assigned. The caller supplies the ID.
func (s *Store) BeginRun(ctx context.Context, run Run) (Run, error) {
	if run.ID == "" {
		return Run{}, fmt.Errorf("begin run: id is required")
	}
	stages, err := marshalList("stages", run.Stages)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	classpath, err := marshalList("classpath", run.Classpath)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return Run{}, fmt.Errorf("begin run: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, input, profile, classpath, stages, tool_version, stream_version, status, input_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		seq,
		run.Input,
		run.Profile,
		classpath,
		stages,
		run.ToolVersion,
		run.StreamVersion,
		string(RunRunning),
		run.InputHash,
	)
	if err != nil {
		return Run{}, fmt.Errorf("begin run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("begin run: commit: %w", err)
	}

	run.Seq = seq
	run.Status = RunRunning
	return run, nil
}

// FinishRun records the outcome of a running run. Finishing a run twice
// or finishing an unknown run is an error.
func (s *Store) FinishRun(ctx context.Context, id string, out Outcome) error {
	if out.Status != RunOK && out.Status != RunFailed {
		return fmt.Errorf("finish run: invalid status %q", out.Status)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error = ?, types = ?, modified = ?, output_hash = ?
		WHERE id = ? AND status = ?
	`,
		string(out.Status),
		out.Error,
		out.Types,
		out.Modified,
		out.OutputHash,
		id,
		string(RunRunning),
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w (or already finished)", id, ErrRunNotFound)
	}
	return nil
}

// WriteRecords appends diagnostic records to a run in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - a record already stored
// under the same (run, seq) is silently kept.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteRecords(ctx context.Context, runID string, records []diag.Record) error {
	return s.inTx(ctx, "write records", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO records
			(run_id, seq, severity, code, stage, type_name, method, message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx,
				runID, r.Seq, r.Severity.String(), r.Code, r.Stage, r.Type, r.Method, r.Message,
			); err != nil {
				return fmt.Errorf("record seq %d: %w", r.Seq, err)
			}
		}
		return nil
	})
}

// WriteFingerprints appends per-type fingerprints to a run in one
// transaction. Idempotent like WriteRecords.
func (s *Store) WriteFingerprints(ctx context.Context, runID string, fps []Fingerprint) error {
	return s.inTx(ctx, "write fingerprints", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fingerprints
			(run_id, idx, type_name, before_hash, after_hash)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, fp := range fps {
			if _, err := stmt.ExecContext(ctx, runID, fp.Index, fp.Type, fp.Before, fp.After); err != nil {
				return fmt.Errorf("fingerprint %d (%s): %w", fp.Index, fp.Type, err)
			}
		}
		return nil
	})
}

func (s *Store) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
