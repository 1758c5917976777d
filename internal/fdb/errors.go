package fdb

import (
	"errors"
	"fmt"
)

// Code classifies every error returned by the public operations of this
// package. Codes are stable; callers switch on them through CodeOf or match
// them with errors.Is against the Err* sentinels.
type Code int

const (
	Success Code = iota
	InvalidArgument
	MalformedRequest
	AxisNotAllowed
	NotFound
	SinkWriteError
	BufferTooSmall
	BackingStoreError
	UnknownException
)

var codeNames = map[Code]string{
	Success:           "success",
	InvalidArgument:   "invalid argument",
	MalformedRequest:  "malformed request",
	AxisNotAllowed:    "axis not allowed",
	NotFound:          "not found",
	SinkWriteError:    "sink write error",
	BufferTooSmall:    "buffer too small",
	BackingStoreError: "backing store error",
	UnknownException:  "unknown exception",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// ErrorString returns the human-readable description of a code.
func ErrorString(c Code) string {
	return c.String()
}

// Error is the concrete error type carrying a Code. Op names the operation
// that failed ("archive", "parse", "retrieve", ...).
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("fdb: %s: %s: %v", e.Op, e.Code, e.Err)
	case e.Op != "":
		return fmt.Sprintf("fdb: %s: %s", e.Op, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("fdb: %s: %v", e.Code, e.Err)
	default:
		return fmt.Sprintf("fdb: %s", e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code. This lets the
// Err* sentinels match any error of their class.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument   = &Error{Code: InvalidArgument}
	ErrMalformedRequest  = &Error{Code: MalformedRequest}
	ErrAxisNotAllowed    = &Error{Code: AxisNotAllowed}
	ErrNotFound          = &Error{Code: NotFound}
	ErrSinkWrite         = &Error{Code: SinkWriteError}
	ErrBufferTooSmall    = &Error{Code: BufferTooSmall}
	ErrBackingStore      = &Error{Code: BackingStoreError}
	ErrUnknownException  = &Error{Code: UnknownException}
	ErrIterationComplete = errors.New("fdb: iteration complete")

	// ErrIteratorTerminated is wrapped by the error returned from Next on an
	// iterator that is already exhausted or failed.
	ErrIteratorTerminated = errors.New("fdb: iterator already terminated")

	// ErrStopStream may be returned by a StreamFunc to end a retrieval early
	// without reporting a failure.
	ErrStopStream = errors.New("fdb: stop stream")
)

func newError(code Code, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

func errorf(code Code, op string, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the Code from err. nil maps to Success and errors that
// carry no code map to UnknownException.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return UnknownException
}

// storeError classifies an error coming back from the Store. Errors that
// already carry a code keep it; everything else is a BackingStoreError.
func storeError(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(BackingStoreError, op, err)
}
