package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/slotgraph/internal/graph"
)

// PassError reports a propagation pass that stopped before its queue was
// drained. Err is the underlying cause, normally a
// *graph.ProtocolViolationError; use errors.As or graph.IsProtocolViolation.
type PassError struct {
	// Token identifies the aborted pass.
	Token string

	// Trigger is the full name of the slot that started the pass.
	Trigger string

	// Notified is the number of dirtied notifications delivered before the
	// pass stopped.
	Notified int

	Err error
}

// Error implements the error interface.
func (e *PassError) Error() string {
	return fmt.Sprintf("pass %s aborted after %d notifications (trigger=%s): %v",
		e.Token, e.Notified, e.Trigger, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PassError) Unwrap() error {
	return e.Err
}

// IsPassAborted returns true if err is or wraps a PassError.
func IsPassAborted(err error) bool {
	var pe *PassError
	return errors.As(err, &pe)
}

// errorCode extracts the code recorded in a PassRecord for err.
func errorCode(err error) string {
	if code := graph.ProtocolViolationCodeOf(err); code != "" {
		return string(code)
	}
	if code := graph.InvalidTargetCodeOf(err); code != "" {
		return string(code)
	}
	return "UNKNOWN"
}
