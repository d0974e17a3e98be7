package converter

import (
	"errors"
	"fmt"
)

var (
	// ErrSubmissionInFlight is returned when a workflow already has a request
	// outstanding. The submission is dropped, not queued.
	ErrSubmissionInFlight = errors.New("a conversion is already in progress")

	// ErrModeInactive is returned when submitting to a workflow whose mode is
	// not currently selected.
	ErrModeInactive = errors.New("workflow is not the active mode")

	// ErrResultDiscarded is returned when a request resolved after the workflow
	// moved on (mode switch or reset); its result was dropped.
	ErrResultDiscarded = errors.New("conversion result discarded")
)

// ValidationError reports a local precondition failure. It never reaches the
// transport.
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// UserMessage is the text shown to the user.
func (e *ValidationError) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Reason
}

// userMessager is implemented by collaborator errors that carry text meant for
// the user.
type userMessager interface {
	UserMessage() string
}

// userMessage extracts the collaborator-supplied message from err, or returns
// fallback when there is none.
func userMessage(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}
