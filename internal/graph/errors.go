package graph

import (
	"errors"
	"fmt"
)

// InvalidTargetCode categorizes rejected value and connection requests.
type InvalidTargetCode string

const (
	// ErrCodeCompoundTarget indicates a value or connection targeted a compound slot.
	ErrCodeCompoundTarget InvalidTargetCode = "COMPOUND_TARGET"

	// ErrCodeDirectionMismatch indicates a connection not running from an
	// output leaf to an input leaf.
	ErrCodeDirectionMismatch InvalidTargetCode = "DIRECTION_MISMATCH"

	// ErrCodeNotSettable indicates a value assignment to an output slot or
	// to an input that currently has an incoming connection.
	ErrCodeNotSettable InvalidTargetCode = "NOT_SETTABLE"

	// ErrCodeUnknownSlot indicates a SlotID that does not exist or belongs
	// to a removed node.
	ErrCodeUnknownSlot InvalidTargetCode = "UNKNOWN_SLOT"

	// ErrCodeStructureMismatch indicates two compound slots whose leaves
	// cannot be paired for ConnectLeaves.
	ErrCodeStructureMismatch InvalidTargetCode = "STRUCTURE_MISMATCH"
)

// InvalidTargetError reports a value or connection request the graph
// refused. It is returned before any mutation happens.
type InvalidTargetError struct {
	// Code identifies the error category.
	Code InvalidTargetCode

	// Message is a human-readable description.
	Message string

	// Slot is the full name of the targeted slot, if known.
	Slot string

	// Source is the full name of the connection source, if any.
	Source string
}

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	switch {
	case e.Slot != "" && e.Source != "":
		return fmt.Sprintf("%s: %s (slot=%s, source=%s)", e.Code, e.Message, e.Slot, e.Source)
	case e.Slot != "":
		return fmt.Sprintf("%s: %s (slot=%s)", e.Code, e.Message, e.Slot)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// ProtocolViolationCode categorizes dependency declaration misuse.
type ProtocolViolationCode string

const (
	// ErrCodeCompoundArgument indicates Affects was asked about a compound slot.
	ErrCodeCompoundArgument ProtocolViolationCode = "COMPOUND_ARGUMENT"

	// ErrCodeForeignSlot indicates a slot that does not belong to the node
	// being queried, as argument or result.
	ErrCodeForeignSlot ProtocolViolationCode = "FOREIGN_SLOT"

	// ErrCodeCompoundResult indicates a declarer returned a compound slot
	// instead of enumerating its leaves.
	ErrCodeCompoundResult ProtocolViolationCode = "COMPOUND_RESULT"

	// ErrCodeInputResult indicates a declarer returned an input slot.
	ErrCodeInputResult ProtocolViolationCode = "INPUT_RESULT"
)

// ProtocolViolationError reports a defect in a node's dependency
// declaration. It is not recoverable: the propagation pass that detected
// it is aborted and the error surfaces to the caller of the mutation.
type ProtocolViolationError struct {
	// Code identifies the violation.
	Code ProtocolViolationCode

	// Message is a human-readable description.
	Message string

	// Node is the name of the node whose declarer was queried.
	Node string

	// Slot is the full name of the offending slot.
	Slot string
}

// Error implements the error interface.
func (e *ProtocolViolationError) Error() string {
	if e.Slot != "" {
		return fmt.Sprintf("%s: %s (node=%s, slot=%s)", e.Code, e.Message, e.Node, e.Slot)
	}
	return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
}

// BuildError reports an invalid change to the graph's structure, such as a
// duplicate node or slot name.
type BuildError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// IsInvalidTarget returns true if err is or wraps an InvalidTargetError.
func IsInvalidTarget(err error) bool {
	var it *InvalidTargetError
	return errors.As(err, &it)
}

// IsProtocolViolation returns true if err is or wraps a ProtocolViolationError.
func IsProtocolViolation(err error) bool {
	var pv *ProtocolViolationError
	return errors.As(err, &pv)
}

// InvalidTargetCodeOf returns the code of a wrapped InvalidTargetError, or "".
func InvalidTargetCodeOf(err error) InvalidTargetCode {
	var it *InvalidTargetError
	if errors.As(err, &it) {
		return it.Code
	}
	return ""
}

// ProtocolViolationCodeOf returns the code of a wrapped ProtocolViolationError, or "".
func ProtocolViolationCodeOf(err error) ProtocolViolationCode {
	var pv *ProtocolViolationError
	if errors.As(err, &pv) {
		return pv.Code
	}
	return ""
}
