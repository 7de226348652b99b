package sasl

import "fmt"

// ErrorCode classifies the taxonomy of failures the negotiation engine can
// produce. The carrier protocol only ever needs to distinguish a handful of
// these (BadServerEncoding is self-recovered, everything else is fatal), but
// the full taxonomy is kept so Diagnostics and logging can be specific.
type ErrorCode int

const (
	// ErrMalformedOption indicates an invalid URL authentication option
	// passed to ParseAuthOption: empty value, or a value that does not
	// decode to a whole mechanism name.
	ErrMalformedOption ErrorCode = iota + 1

	// ErrOutOfMemory indicates a mechanism context or buffer could not be
	// acquired. Surfaced verbatim; the session is torn down.
	ErrOutOfMemory

	// ErrBadServerEncoding indicates the server sent data the mechanism
	// primitive could not decode. This is the only self-recovered error:
	// the driver cancels the mechanism and restarts selection.
	ErrBadServerEncoding

	// ErrLoginDenied indicates the server returned the wrong result code for
	// the current state, or the chosen mechanism was exhausted with failure.
	ErrLoginDenied

	// ErrUnsupportedProtocol indicates the driver reached a state it does
	// not recognize. This is an internal invariant violation and should
	// never fire in a correct implementation.
	ErrUnsupportedProtocol

	// ErrFailedInit indicates a required mechanism context was missing
	// during a continuation (e.g. an NTLM or GSSAPI handle that should have
	// been attached to the connection during selection).
	ErrFailedInit
)

// String returns a human-readable name for the error code.
func (c ErrorCode) String() string {
	switch c {
	case ErrMalformedOption:
		return "MalformedOption"
	case ErrOutOfMemory:
		return "OutOfMemory"
	case ErrBadServerEncoding:
		return "BadServerEncoding"
	case ErrLoginDenied:
		return "LoginDenied"
	case ErrUnsupportedProtocol:
		return "UnsupportedProtocol"
	case ErrFailedInit:
		return "FailedInit"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// Error is the concrete error type returned by this package. Carriers that
// need to branch on the taxonomy should use errors.As to recover it, or
// errors.Is against one of the Err* sentinels below.
type Error struct {
	Code    ErrorCode
	Message string
	Mech    string // mechanism in play when the error occurred, if any
	err     error  // wrapped cause, if any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Mech != "" {
		return fmt.Sprintf("sasl: %s: %s (mech: %s)", e.Code, e.Message, e.Mech)
	}
	return fmt.Sprintf("sasl: %s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause, if any, so errors.Is/As can see through
// this error to the underlying mechanism-primitive failure.
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether target is the sentinel for this error's code, so
// errors.Is(err, sasl.ErrLoginDenied) works without a type assertion.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	if !ok {
		return false
	}
	return sentinel.Code == e.Code && sentinel.err == nil && sentinel.Mech == ""
}

func newError(code ErrorCode, mech, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Mech: mech, err: cause}
}

// Sentinel errors for errors.Is comparisons against a specific taxonomy
// member, independent of message or mechanism.
var (
	ErrMalformedOptionErr   = &Error{Code: ErrMalformedOption, Message: "malformed auth option"}
	ErrOutOfMemoryErr       = &Error{Code: ErrOutOfMemory, Message: "allocation failed"}
	ErrBadServerEncodingErr = &Error{Code: ErrBadServerEncoding, Message: "server data not decodable"}
	ErrLoginDeniedErr       = &Error{Code: ErrLoginDenied, Message: "authentication denied"}
	ErrUnsupportedProtoErr  = &Error{Code: ErrUnsupportedProtocol, Message: "unrecognized driver state"}
	ErrFailedInitErr        = &Error{Code: ErrFailedInit, Message: "mechanism context missing"}
)
