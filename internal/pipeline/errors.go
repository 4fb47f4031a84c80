package pipeline

import (
	"errors"
	"fmt"
)

// ErrUnknownStage is returned when a stage name is not recognized.
var ErrUnknownStage = errors.New("unknown stage")

// StageError is a fatal error raised by a stage while transforming a type.
// The underlying error (for example a *completion.Error) is available via
// errors.As.
type StageError struct {
	Stage string
	Type  string
	Err   error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: type %s: %v", e.Stage, e.Type, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
