package diag

import "sync/atomic"

// Clock hands out record sequence numbers, starting after its initial
// value. It is the only notion of time in a trace.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock whose first Next is start+1. Used to continue
// numbering after records read back from a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new value.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current is the last value handed out, or the start value.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
