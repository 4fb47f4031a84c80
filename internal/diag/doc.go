// Package diag carries the informational and warning records the passes
// emit while they work.
//
// Records are plain values sent to a Sink. A Collector keeps them in
// emission order for the journal, the harness, and CLI output; a LogSink
// forwards them to slog. Every record gets a sequence number from a
// monotonic Clock so traces are totally ordered and replay identically.
package diag
