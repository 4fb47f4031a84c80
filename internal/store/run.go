package store

import (
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run matches an ID or prefix.
var ErrRunNotFound = errors.New("run not found")

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning RunStatus = "running"
	RunOK      RunStatus = "ok"
	RunFailed  RunStatus = "failed"
)

// Run is one journaled pipeline run.
type Run struct {
	ID            string
	Seq           int64 // assigned by BeginRun
	Input         string
	Profile       string   // registry profile: "default" or a file path
	Classpath     []string // library entries as given on the command line
	Stages        []string
	ToolVersion   string
	StreamVersion string
	Status        RunStatus
	Error         string
	Types         int
	Modified      int
	InputHash     string
	OutputHash    string
}

// Outcome is what FinishRun records about a completed run.
type Outcome struct {
	Status     RunStatus
	Error      string
	Types      int
	Modified   int
	OutputHash string
}

// Fingerprint is the before/after content hash of one type in a run.
type Fingerprint struct {
	RunID  string // set only by TypeHistory
	Index  int
	Type   string
	Before string
	After  string
}

// Modified reports whether the type changed during the run.
func (f Fingerprint) Modified() bool {
	return f.Before != f.After
}

// AmbiguousRunError is returned when an ID prefix matches several runs.
type AmbiguousRunError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousRunError) Error() string {
	return fmt.Sprintf("run id prefix %q is ambiguous (%d matches)", e.Prefix, len(e.Matches))
}
