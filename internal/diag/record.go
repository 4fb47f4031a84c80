package diag

import (
	"fmt"
	"strings"
)

// Severity is the level of a record.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns a human-readable severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "info":
		*s = SeverityInfo
	case "warning":
		*s = SeverityWarning
	case "error":
		*s = SeverityError
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Record codes.
const (
	CodeTagsInjected       = "I100" // completion added tags to a method
	CodeClinitSynthesized  = "I200" // static initializer created
	CodeHookPrepended      = "I201" // hook call inserted at offset zero
	CodeTypeNotFound       = "W100" // introspection failed during contract lookup
	CodeMalformedSignature = "W101" // descriptor could not be decoded
	CodeAncestryCycle      = "W102" // superclass chain loops during contract lookup
	CodeAncestryUnresolved = "W110" // bridging ancestry walk failed
	CodeStageFailed        = "E900" // fatal error that aborted the run
)

// Record is one diagnostic line.
type Record struct {
	Seq      int64    `json:"seq"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Stage    string   `json:"stage,omitempty"`
	Type     string   `json:"type,omitempty"`
	Method   string   `json:"method,omitempty"` // name + descriptor
	Message  string   `json:"message"`
}

// Subject renders "Type.method(desc)" or just the type.
func (r Record) Subject() string {
	if r.Method == "" {
		return r.Type
	}
	return r.Type + "." + r.Method
}

// String returns a formatted record, e.g. "[I100] app/Derived.speak()V: injected 1 tag".
func (r Record) String() string {
	msg := r.Message
	if r.Code != "" {
		msg = fmt.Sprintf("[%s] %s", r.Code, msg)
	}
	if subject := r.Subject(); subject != "" {
		return strings.TrimSpace(subject) + ": " + msg
	}
	return msg
}
