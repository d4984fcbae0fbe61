package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrSuperseded marks a session that was cancelled because a newer
	// request replaced it.
	ErrSuperseded = errors.New("session superseded by a newer request")
	// ErrCancelled marks a session stopped on request.
	ErrCancelled = errors.New("session cancelled")
	// ErrStalled is reported when no event arrives within the idle timeout.
	ErrStalled = errors.New("stream stalled: no events within idle timeout")
	// ErrUnexpectedEOF is reported when the transport closes without an
	// end frame.
	ErrUnexpectedEOF = errors.New("stream closed without end frame")
	// ErrAlreadyOpen is returned by Open on a session that has left Idle.
	ErrAlreadyOpen = errors.New("session already opened")
)

// ValidationError reports a request parameter outside its allowed range.
// It is always returned before any I/O happens.
type ValidationError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be between %d and %d, got %d", e.Field, e.Min, e.Max, e.Value)
}

// DecodeError reports a single frame that could not be turned into an item.
// Sessions recover from it locally and never surface it to callers.
type DecodeError struct {
	Payload string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame %q: %v", truncate(e.Payload, 64), e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// TransportError reports a connection failure. It is fatal to the session
// that observes it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
