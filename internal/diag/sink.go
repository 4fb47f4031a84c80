package diag

import (
	"context"
	"log/slog"
)

// Sink receives records.
type Sink interface {
	Emit(r Record)
}

// Discard drops every record.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Record) {}

// Collector keeps records in emission order, stamping any record that
// arrives without a sequence number.
//
// Thread-safety: NOT safe for concurrent use. The pipeline is single
// threaded.
type Collector struct {
	clock   *Clock
	records []Record
}

// NewCollector creates an empty collector with its own clock.
func NewCollector() *Collector {
	return &Collector{clock: NewClock()}
}

// Emit implements Sink.
func (c *Collector) Emit(r Record) {
	if r.Seq == 0 {
		r.Seq = c.clock.Next()
	}
	c.records = append(c.records, r)
}

// Records returns a copy of all records in emission order.
func (c *Collector) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}

// Len returns the number of records collected.
func (c *Collector) Len() int {
	return len(c.records)
}

// Infos returns the informational records.
func (c *Collector) Infos() []Record {
	return c.bySeverity(SeverityInfo)
}

// Warnings returns the warning records.
func (c *Collector) Warnings() []Record {
	return c.bySeverity(SeverityWarning)
}

// Errors returns the error records.
func (c *Collector) Errors() []Record {
	return c.bySeverity(SeverityError)
}

// HasErrors reports whether any error record was collected.
func (c *Collector) HasErrors() bool {
	return len(c.Errors()) > 0
}

// WithCode returns the records carrying code.
func (c *Collector) WithCode(code string) []Record {
	var out []Record
	for _, r := range c.records {
		if r.Code == code {
			out = append(out, r)
		}
	}
	return out
}

func (c *Collector) bySeverity(s Severity) []Record {
	var out []Record
	for _, r := range c.records {
		if r.Severity == s {
			out = append(out, r)
		}
	}
	return out
}

// LogSink forwards records to a slog.Logger at the matching level.
type LogSink struct {
	Logger *slog.Logger // nil means slog.Default()
}

// Emit implements Sink.
func (s LogSink) Emit(r Record) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch r.Severity {
	case SeverityWarning:
		level = slog.LevelWarn
	case SeverityError:
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, r.Message,
		"code", r.Code,
		"seq", r.Seq,
		"stage", r.Stage,
		"subject", r.Subject(),
	)
}

// Multi fans records out to several sinks. It stamps each record once so
// every sink sees the same sequence number.
type Multi struct {
	clock *Clock
	sinks []Sink
}

// NewMulti creates a fan-out sink.
func NewMulti(sinks ...Sink) *Multi {
	return &Multi{clock: NewClock(), sinks: sinks}
}

// Emit implements Sink.
func (m *Multi) Emit(r Record) {
	if r.Seq == 0 {
		r.Seq = m.clock.Next()
	}
	for _, s := range m.sinks {
		s.Emit(r)
	}
}

// Func adapts a function to a Sink.
type Func func(Record)

// Emit implements Sink.
func (f Func) Emit(r Record) {
	f(r)
}
