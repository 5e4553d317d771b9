package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = errors.New("called Scan before Next")
	// ErrTargetNil is returned when user provides a nil value as a target
	// to decode data.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = errors.New("target is not a pointer")
	// ErrMixedOperators is returned when a query or update mixes operators
	// and plain fields in the same object.
	ErrMixedOperators = errors.New("cannot mix operators and normal fields")
	// ErrNotConnected is returned by a router when no database has been
	// connected yet.
	ErrNotConnected = errors.New("not connected to a database")
)

// ErrConnection is returned when a connection string is invalid or the remote
// backend cannot be reached.
type ErrConnection struct {
	URI    string
	Reason string
	Err    error
}

// Error implements [error].
func (e ErrConnection) Error() string {
	msg := fmt.Sprintf("connection to %q failed: %s", e.URI, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrNotImplemented is returned by remote collections for every operation that
// is not wired to the backend.
type ErrNotImplemented struct {
	Collection string
	Operation  Operation
}

// Error implements [error].
func (e ErrNotImplemented) Error() string {
	return fmt.Sprintf(
		"%s on collection %q is not implemented in REST API mode",
		e.Operation, e.Collection,
	)
}

// ErrRemote is returned when the backend answers with a failure envelope or an
// unexpected status.
type ErrRemote struct {
	Status  int
	Message string
}

// Error implements [error].
func (e ErrRemote) Error() string {
	return fmt.Sprintf("backend replied %d: %s", e.Status, e.Message)
}

// ErrUnknownOperator is returned when a query contains an unknown dollar
// field.
type ErrUnknownOperator struct {
	Operator string
}

// Error implements [error].
func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// ErrCompArgType is returned when an operator is called with an argument of
// invalid type.
type ErrCompArgType struct {
	Comp   string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrCompArgType) Error() string {
	return fmt.Sprintf(
		"%s value should be of type %s, got %T",
		e.Comp, e.Want, e.Actual,
	)
}

// ErrUnsupportedModifier is returned when an update uses a dollar operator
// other than $set.
type ErrUnsupportedModifier struct {
	Modifier string
}

// Error implements [error].
func (e ErrUnsupportedModifier) Error() string {
	return fmt.Sprintf("unsupported update operator %q", e.Modifier)
}

// ErrUnknownStage is returned by [Aggregator] for stages it cannot run.
type ErrUnknownStage struct {
	Stage string
}

// Error implements [error].
func (e ErrUnknownStage) Error() string {
	return fmt.Sprintf("unknown aggregation stage %q", e.Stage)
}

// ErrInvalidMode is returned when a mode value is neither [ModeLocal] nor
// [ModeRemote].
type ErrInvalidMode struct {
	Mode string
}

// Error implements [error].
func (e ErrInvalidMode) Error() string {
	return fmt.Sprintf("invalid storage mode %q", e.Mode)
}

// ErrDocumentType is returned when a value cannot be used as a [Document].
type ErrDocumentType struct {
	Reason string
}

// Error implements [error].
func (e ErrDocumentType) Error() string {
	return "invalid document: " + e.Reason
}

// ErrCannotCompare is returned when [Comparer.Compare] is called with two
// values that cannot be ordered.
type ErrCannotCompare struct {
	A, B any
}

// Error implements [error].
func (e ErrCannotCompare) Error() string {
	return fmt.Sprintf("cannot compare %T and %T", e.A, e.B)
}

// ErrDecode is returned by [Decoder.Decode] to wrap third party decoding
// errors.
type ErrDecode struct {
	Source any
	Target any
}

// Error implements [error].
func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}
