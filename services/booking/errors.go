package booking

import (
	"errors"
	"fmt"

	"tripnest/services/validation"
)

var (
	// ErrCancelled marks a superseded or abandoned operation. Never an
	// error-telemetry event.
	ErrCancelled = errors.New("operation cancelled")
	// ErrFlowClosed means the flow already reached a terminal outcome.
	ErrFlowClosed = errors.New("booking flow already finished")
	// ErrProcessingLocked means the submission is in flight and the flow
	// cannot be cancelled or navigated.
	ErrProcessingLocked = errors.New("booking submission in progress")
)

// StepError is a step-local failure: the flow stays on the current step
// and the guest may retry.
type StepError struct {
	Code    string
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ValidationError carries the per-field messages from the authoritative
// validation pass. Surfaced inline, never logged as a telemetry failure.
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("guest information invalid (%d fields)", len(e.Fields))
}
