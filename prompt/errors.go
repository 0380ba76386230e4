package prompt

import "fmt"

// DefaultFailureMessage is shown to callers for every generation failure.
const DefaultFailureMessage = "Sorry, something went wrong while generating a response. Please try again."

// ValidationError reports input rejected before any provider call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// GenerationError is the single failure shape for provider errors, transport
// failures, timeouts and empty responses. Error() returns only the user-facing
// message; the cause is kept for errors.Is/As and logging.
type GenerationError struct {
	Message string
	cause   error
}

func (e *GenerationError) Error() string {
	return e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.cause
}
