// Package chaterr defines the error taxonomy shared by the store client,
// the pub/sub transport and the credential protocol.
package chaterr

import (
	"errors"
	"fmt"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings.
// Use errors.As to extract *Error for structured handling.
type Kind string

const (
	// KindTransport covers network and HTTP failures. Not retried; callers may re-invoke.
	KindTransport Kind = "Transport"
	// KindEncoding means a value could not be serialized.
	KindEncoding Kind = "Encoding"
	// KindDecoding means a response did not match the expected shape.
	KindDecoding Kind = "Decoding"
	// KindProtocolDecode means a stream record matched no known shape. It ends the stream.
	KindProtocolDecode Kind = "ProtocolDecode"
	// KindVerification means a signature does not match the claimed address.
	KindVerification Kind = "Verification"
	// KindPrecondition means a local requirement was not met and no network call was made.
	KindPrecondition Kind = "Precondition"
)

// Error is the structured error type.
//
// Op names the operation that failed (e.g. "dag/get").
// Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	} else if e.Cause != nil {
		msg = msg + ": " + e.Cause.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns an error of the given kind without a cause.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Message: msg}
}

// Wrap returns an error of the given kind wrapping cause.
// A nil cause yields the same result as New.
func Wrap(kind Kind, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

func Transport(op string, cause error) error { return Wrap(KindTransport, op, "", cause) }

func Encoding(op string, cause error) error { return Wrap(KindEncoding, op, "", cause) }

func Decoding(op string, cause error) error { return Wrap(KindDecoding, op, "", cause) }

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of the outermost *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
