package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/bridgepass/internal/diag"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // fatal pass error, failed scenario, replay mismatch
	ExitCommandError = 2 // unreadable input, bad registry or config, missing journal
)

// ExitError is returned by a command that has already reported its
// failure and only needs the process to exit with Code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError around err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps a command error to a process exit code. Load errors are
// command errors; anything unrecognized, cobra's usage errors included,
// is ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return ExitCommandError
	}
	return ExitFailure
}

// OutputFormatter writes command results as JSON envelopes or text.
// ErrWriter receives progress lines so JSON on Writer stays parseable.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope every command prints. Status is "ok"
// or "error"; RunID is set when the command wrote a journal run.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
	RunID  string    `json:"run_id,omitempty"`
}

// CLIError carries one of the E-codes from loader.go.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success prints data. Text mode relies on data's String method.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error prints a coded error. Details appear in text mode only with
// --verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", errorColor.Sprint("Error"), code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	// Method names such as <clinit> must stay readable.
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// VerboseLog prints a progress line with --verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when unset.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Severity colors. color disables itself when stdout is not a terminal
// or NO_COLOR is set.
var (
	infoColor    = color.New(color.FgCyan)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	okColor      = color.New(color.FgGreen)
)

// Records prints diagnostic records in text form, one per line. Info
// records are printed only in verbose mode.
func (f *OutputFormatter) Records(records []diag.Record) {
	for _, r := range records {
		if r.Severity == diag.SeverityInfo && !f.Verbose {
			continue
		}
		fmt.Fprintln(f.Writer, formatRecord(r))
	}
}

// formatRecord renders "[seq] CODE severity stage subject: message".
func formatRecord(r diag.Record) string {
	c := infoColor
	switch r.Severity {
	case diag.SeverityWarning:
		c = warningColor
	case diag.SeverityError:
		c = errorColor
	}
	return fmt.Sprintf("[%d] %s %s %s %s: %s",
		r.Seq, c.Sprint(r.Code), c.Sprint(r.Severity), r.Stage, r.Subject(), r.Message)
}

// RecordView is the JSON shape of a diagnostic record.
type RecordView struct {
	Seq      int64  `json:"seq"`
	Severity string `json:"severity"`
	Code     string `json:"code"`
	Stage    string `json:"stage,omitempty"`
	Type     string `json:"type,omitempty"`
	Method   string `json:"method,omitempty"`
	Message  string `json:"message"`
}

func recordViews(records []diag.Record) []RecordView {
	out := make([]RecordView, len(records))
	for i, r := range records {
		out[i] = RecordView{
			Seq:      r.Seq,
			Severity: r.Severity.String(),
			Code:     r.Code,
			Stage:    r.Stage,
			Type:     r.Type,
			Method:   r.Method,
			Message:  r.Message,
		}
	}
	return out
}

// loadFailure reports a *LoadError through the formatter and converts it
// to an exit error. Other errors pass through as command errors.
func loadFailure(f *OutputFormatter, message string, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = f.Error(loadErr.Code, loadErr.Message, nil)
		return WrapExitError(ExitCommandError, message, err)
	}
	_ = f.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, message, err)
}
