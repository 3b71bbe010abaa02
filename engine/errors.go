package engine

import "fmt"

// ValidationError is a user-facing rejection of step input. It re-prompts
// the current step and never clears the session.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Invalid builds a ValidationError with a formatted user-facing reason.
func Invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// AssistError reports that the text-generation collaborator failed or is
// unavailable. The step is re-prompted and the session is left untouched.
type AssistError struct {
	Err error
}

func (e *AssistError) Error() string { return fmt.Sprintf("assistant unavailable: %v", e.Err) }
func (e *AssistError) Unwrap() error { return e.Err }
