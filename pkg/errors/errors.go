// Package errors wraps errors with context and carries them across the wire
// protocol, following the same conventions as the rest of the codebase.
package errors

import (
	"errors"
	"fmt"
)

// New returns a new error with the given message.
func New(msg string) error {
	return errors.New(msg)
}

// WithContext wraps err with a short prefix describing what was being
// attempted when it occurred.
func WithContext(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Is is a passthrough to the standard library so callers don't need a second
// import for the common case.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// ErrInvariantViolation is returned when the engine observes state that
// should be impossible per the data model's invariants. It is always fatal
// to the session that raised it.
var ErrInvariantViolation = errors.New("invariant violation")

// ErrTransport is returned when the underlying stream breaks in a way that
// cannot be recovered without a reconnect.
var ErrTransport = errors.New("transport error")

// MalformedPath represents an Update whose path fails ingress validation.
type MalformedPath struct {
	Path   string
	Reason string
}

func (err MalformedPath) Error() string {
	return fmt.Sprintf("malformed path %q: %s", err.Path, err.Reason)
}

// FileVanished represents a file that disappeared between being diffed and
// being read from disk. Callers should treat this as transient and drop the
// single update rather than fail the session.
type FileVanished struct {
	Path string
}

func (err FileVanished) Error() string {
	return fmt.Sprintf("%q vanished before it could be read", err.Path)
}

// Marshal converts err into a wire-safe string, or the empty string if err is
// nil. It mirrors the way the sync server passes application errors back to
// the client inside the response message instead of as a gRPC status.
func Marshal(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Unmarshal reconstructs an error from a transport error and/or a marshaled
// message. If both are empty, it returns nil.
func Unmarshal(transportErr error, msg string) error {
	if transportErr != nil {
		return transportErr
	}
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}
