package harness

import (
	"github.com/roach88/bridgepass/internal/diag"
	"github.com/roach88/bridgepass/internal/ir"
)

// TraceEvent is one diagnostic record in the scenario trace.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Stage    string `json:"stage,omitempty"`
	Type     string `json:"type,omitempty"`
	Method   string `json:"method,omitempty"`
	Message  string `json:"message"`
}

func traceEvent(r diag.Record) TraceEvent {
	return TraceEvent{
		Seq:      r.Seq,
		Severity: r.Severity.String(),
		Code:     r.Code,
		Stage:    r.Stage,
		Type:     r.Type,
		Method:   r.Method,
		Message:  r.Message,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success.
	// True if the run outcome and every assertion match.
	Pass bool `json:"pass"`

	// Trace contains every diagnostic record of the run, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Failure is the fatal run error, if any.
	Failure string `json:"failure,omitempty"`

	// Input and Output are the stream before and after the run.
	// Output is nil when the run failed.
	Input  []*ir.CompiledType `json:"-"`
	Output []*ir.CompiledType `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddRecord appends a diagnostic record to the trace.
func (r *Result) AddRecord(rec diag.Record) {
	r.Trace = append(r.Trace, traceEvent(rec))
}

// OutputType returns the output type with the given name.
func (r *Result) OutputType(name string) *ir.CompiledType {
	return findType(r.Output, name)
}

// InputType returns the input type with the given name.
func (r *Result) InputType(name string) *ir.CompiledType {
	return findType(r.Input, name)
}

func findType(types []*ir.CompiledType, name string) *ir.CompiledType {
	for _, t := range types {
		if t.Name == name {
			return t
		}
	}
	return nil
}
