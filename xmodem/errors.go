package xmodem

import (
	"errors"
	"fmt"
	"os"
)

// Error represents an XMODEM protocol or transport error
type Error struct {
	// Type is the error type
	Type ErrorType

	// Message is a human-readable error message
	Message string

	// Err is the underlying transport error (if any)
	Err error
}

// ErrorType categorizes XMODEM errors
type ErrorType int

const (
	// ErrProtocol indicates misuse of the API, such as reusing a Session
	ErrProtocol ErrorType = iota

	// ErrTimeout indicates the transport gave up waiting for the first byte of a read
	ErrTimeout

	// ErrConnectionAborted indicates a CAN byte was received
	ErrConnectionAborted

	// ErrInvalidData indicates a protocol violation on the wire
	ErrInvalidData

	// ErrInterrupted indicates a transient fault that consumes one retry attempt
	ErrInterrupted

	// ErrBrokenPipe indicates the retry bound was exhausted for a single packet
	ErrBrokenPipe

	// ErrUnexpectedEOF indicates a buffer that violates the 128-byte packet contract
	ErrUnexpectedEOF

	// ErrIO indicates an I/O error from the transport, the source or the sink
	ErrIO
)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("xmodem %s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("xmodem %s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same type. This lets
// errors.Is match against ErrKind values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Message == "" || t.Message == e.Message)
}

func (t ErrorType) String() string {
	switch t {
	case ErrProtocol:
		return "protocol error"
	case ErrTimeout:
		return "timeout"
	case ErrConnectionAborted:
		return "connection aborted"
	case ErrInvalidData:
		return "invalid data"
	case ErrInterrupted:
		return "interrupted"
	case ErrBrokenPipe:
		return "broken pipe"
	case ErrUnexpectedEOF:
		return "unexpected EOF"
	case ErrIO:
		return "I/O error"
	default:
		return "unknown error"
	}
}

// NewError creates a new XMODEM error
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// WrapError creates a new XMODEM error around a lower level error
func WrapError(errType ErrorType, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// ErrKind returns a value that matches, under errors.Is, any error of type t.
func ErrKind(t ErrorType) error {
	return &Error{Type: t}
}

// ErrSessionUsed is returned when a Session is asked to run a second transfer.
var ErrSessionUsed = NewError(ErrProtocol, "session already used")

// TypeOf returns the ErrorType of err, or ErrIO when err is not an *Error.
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrIO
}

func isType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	return isType(err, ErrTimeout)
}

// IsCancelled checks if an error indicates the peer cancelled the transfer
func IsCancelled(err error) bool {
	return isType(err, ErrConnectionAborted)
}

// IsInterrupted checks if an error is a transient, retryable fault
func IsInterrupted(err error) bool {
	return isType(err, ErrInterrupted)
}

// IsBrokenPipe checks if an error reports an exhausted retry bound
func IsBrokenPipe(err error) bool {
	return isType(err, ErrBrokenPipe)
}

// IsInvalidData checks if an error is a protocol violation
func IsInvalidData(err error) bool {
	return isType(err, ErrInvalidData)
}
