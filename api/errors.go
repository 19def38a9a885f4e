package api

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of an invocation.
type ErrorKind string

const (
	// KindTransport is a channel-level failure: network, HTTP status,
	// undecodable body or an XML-RPC fault.
	KindTransport ErrorKind = "transport"
	// KindMalformedResponse means a structured record was expected.
	KindMalformedResponse ErrorKind = "malformed_response"
	// KindMissingField means a record lacked an expected field.
	KindMissingField ErrorKind = "missing_field"
	// KindUnexpectedType means a field held the wrong variant.
	KindUnexpectedType ErrorKind = "unexpected_type"
	// KindUnrepresentableNumber means a NaN or infinite double reached JSON.
	KindUnrepresentableNumber ErrorKind = "unrepresentable_number"
	// KindPolicyDenied means the call was refused locally before login.
	KindPolicyDenied ErrorKind = "policy_denied"
)

// Error is a classified failure. Op names the step that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// Errorf builds a classified error with a formatted cause.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first classified error in err's chain,
// or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
