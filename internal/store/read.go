package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/bridgepass/internal/diag"
)

const runColumns = `id, seq, input, profile, classpath, stages, tool_version, stream_version,
	status, error, types, modified, input_hash, output_hash`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// ReadRuns returns every run in journal order.
// CP-3: ORDER BY seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ReadRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns the run with the given ID.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// FindRun resolves a full run ID or a unique ID prefix.
func (s *Store) FindRun(ctx context.Context, prefix string) (Run, error) {
	if prefix == "" {
		return Run{}, fmt.Errorf("%w: empty id", ErrRunNotFound)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs
		WHERE substr(id, 1, ?) = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, len(prefix), prefix)
	if err != nil {
		return Run{}, fmt.Errorf("query run prefix: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return Run{}, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate run ids: %w", err)
	}

	switch len(ids) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return s.ReadRun(ctx, ids[0])
	default:
		return Run{}, &AmbiguousRunError{Prefix: prefix, Matches: ids}
	}
}

// LatestRun returns the run with the highest sequence number.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: journal is empty", ErrRunNotFound)
	}
	return run, err
}

// ReadRecords returns a run's diagnostic records.
// CP-3: ORDER BY seq ASC.
func (s *Store) ReadRecords(ctx context.Context, runID string) ([]diag.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, severity, code, stage, type_name, method, message
		FROM records
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := []diag.Record{}
	for rows.Next() {
		var r diag.Record
		var severity string
		if err := rows.Scan(&r.Seq, &severity, &r.Code, &r.Stage, &r.Type, &r.Method, &r.Message); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := r.Severity.UnmarshalText([]byte(severity)); err != nil {
			return nil, fmt.Errorf("record seq %d: %w", r.Seq, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// ReadFingerprints returns a run's per-type fingerprints in stream order.
func (s *Store) ReadFingerprints(ctx context.Context, runID string) ([]Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, type_name, before_hash, after_hash
		FROM fingerprints
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	fps := []Fingerprint{}
	for rows.Next() {
		var fp Fingerprint
		if err := rows.Scan(&fp.Index, &fp.Type, &fp.Before, &fp.After); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		fps = append(fps, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}
	return fps, nil
}

// TypeHistory returns every fingerprint recorded for a type name across
// all runs, oldest run first.
func (s *Store) TypeHistory(ctx context.Context, typeName string) ([]Fingerprint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.run_id, f.idx, f.type_name, f.before_hash, f.after_hash
		FROM fingerprints f
		JOIN runs r ON f.run_id = r.id
		WHERE f.type_name = ?
		ORDER BY r.seq ASC, f.idx ASC
	`, typeName)
	if err != nil {
		return nil, fmt.Errorf("query type history: %w", err)
	}
	defer rows.Close()

	fps := []Fingerprint{}
	for rows.Next() {
		var fp Fingerprint
		if err := rows.Scan(&fp.RunID, &fp.Index, &fp.Type, &fp.Before, &fp.After); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		fps = append(fps, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type history: %w", err)
	}
	return fps, nil
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var classpath, stages, status string
	err := sc.Scan(
		&run.ID,
		&run.Seq,
		&run.Input,
		&run.Profile,
		&classpath,
		&stages,
		&run.ToolVersion,
		&run.StreamVersion,
		&status,
		&run.Error,
		&run.Types,
		&run.Modified,
		&run.InputHash,
		&run.OutputHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = RunStatus(status)
	if run.Classpath, err = unmarshalList("classpath", classpath); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	if run.Stages, err = unmarshalList("stages", stages); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}
