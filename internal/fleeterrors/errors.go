// Package fleeterrors defines the error kinds shared across the dispatch
// and telemetry core, following the same plain fmt.Errorf/%w wrapping style
// the rest of the codebase uses — just with a typed Kind attached so callers
// (CLI exit codes, HTTP status mapping) can switch on category without
// string matching.
package fleeterrors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error for callers that need to branch on it (CLI exit
// codes, HTTP handlers) without parsing error strings.
type Kind string

const (
	MalformedPacket   Kind = "malformed_packet"
	TimelineInvalid   Kind = "timeline_invalid"
	TransportError    Kind = "transport_error"
	EncryptionFailure Kind = "encryption_failure"
	HandshakeRejected Kind = "handshake_rejected"
	CounterExhausted  Kind = "counter_exhausted"
	InvalidBaseTime   Kind = "invalid_base_time"
	IoError           Kind = "io_error"
	NotFound          Kind = "not_found"
)

// Error wraps an underlying error with a Kind for categorized handling.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a Kind-tagged error from a message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Newf creates a Kind-tagged error from a format string.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap attaches a Kind to an existing error.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
