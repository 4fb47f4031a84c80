// Package store provides the SQLite-backed run journal.
//
// The journal is append-only and holds:
//   - Runs: one row per pipeline run, with status and summary counts
//   - Records: every diagnostic record a run emitted
//   - Fingerprints: before/after content hashes of every type a run saw
//
// # Critical Patterns
//
// CP-1: Idempotent Writes
//   - Records are keyed by (run_id, seq), fingerprints by (run_id, idx)
//   - Re-writing the same batch is a no-op (ON CONFLICT DO NOTHING)
//
// CP-2: Logical Ordering
//   - Runs are ordered by a journal-assigned seq, records by their
//     diagnostic seq; never by wall-clock time
//
// CP-3: Deterministic Query Results
//   - All list queries include ORDER BY seq ASC (or idx ASC) and a
//     binary-collated id tiebreak where ids can repeat
//
// # Connection
//
// One connection per Store; foreign_keys and busy_timeout=5000 always,
// WAL and synchronous=NORMAL for file journals. MemoryPath gives a
// throwaway journal for the scenario harness. Opening an older journal
// runs the pending migrations and bumps user_version.
package store
