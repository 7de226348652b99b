package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// These keys are designed to be carrier-agnostic, supporting IMAP, SMTP, POP3,
// LDAP and future carrier protocols layered on top of the negotiation engine.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Carrier & Session
	// ========================================================================
	KeyCarrier   = "carrier"    // Carrier protocol: imap, smtp, pop3, ldap
	KeyService   = "service"    // GSSAPI/NTLM service name (e.g. "imap", "smtp")
	KeySessionID = "session_id" // Correlates all log lines for one auth attempt

	// ========================================================================
	// Mechanism Negotiation
	// ========================================================================
	KeyMechanism  = "mechanism"   // Mechanism name: PLAIN, CRAM-MD5, GSSAPI, ...
	KeyAuthMechs  = "auth_mechs"  // Server-offered mechanism bitmap
	KeyPrefMechs  = "pref_mechs"  // Client-preferred mechanism bitmap
	KeyState      = "state"       // Driver state before a transition
	KeyNewState   = "new_state"   // Driver state after a transition
	KeyProgress   = "progress"    // Idle, InProgress, Done
	KeyForceIR    = "force_ir"    // Whether an initial response was forced
	KeyHasIR      = "has_ir"      // Whether an initial response was actually sent

	// ========================================================================
	// Wire Turns
	// ========================================================================
	KeyServerCode  = "server_code"  // Result code returned by the carrier
	KeyContCode    = "cont_code"    // Configured continuation code
	KeyFinalCode   = "final_code"   // Configured success code
	KeyPayloadLen  = "payload_len"  // Length of an encoded/decoded payload
	KeyMaxIRLen    = "max_ir_len"   // Configured initial-response length cap

	// ========================================================================
	// Identity
	// ========================================================================
	KeyUsername = "username" // Authentication username
	KeyAuthzID  = "authzid"  // SASL authorization identity

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyReason     = "reason"      // Diagnostics reason a mechanism was skipped
	KeyAttempt    = "attempt"     // Retry/fallback attempt number
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Carrier returns a slog.Attr for the carrier protocol name.
func Carrier(name string) slog.Attr {
	return slog.String(KeyCarrier, name)
}

// Service returns a slog.Attr for the GSSAPI/NTLM service name.
func Service(name string) slog.Attr {
	return slog.String(KeyService, name)
}

// SessionID returns a slog.Attr for the session identifier.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Mechanism returns a slog.Attr for a mechanism name.
func Mechanism(name string) slog.Attr {
	return slog.String(KeyMechanism, name)
}

// AuthMechs returns a slog.Attr for the server-offered mechanism bitmap,
// formatted in hex for compact log lines.
func AuthMechs(bits uint16) slog.Attr {
	return slog.String(KeyAuthMechs, fmt.Sprintf("0x%04x", bits))
}

// PrefMechs returns a slog.Attr for the client-preferred mechanism bitmap.
func PrefMechs(bits uint16) slog.Attr {
	return slog.String(KeyPrefMechs, fmt.Sprintf("0x%04x", bits))
}

// State returns a slog.Attr for the driver state before a transition.
func State(name string) slog.Attr {
	return slog.String(KeyState, name)
}

// NewState returns a slog.Attr for the driver state after a transition.
func NewState(name string) slog.Attr {
	return slog.String(KeyNewState, name)
}

// Progress returns a slog.Attr for the driver's progress value.
func Progress(name string) slog.Attr {
	return slog.String(KeyProgress, name)
}

// ForceIR returns a slog.Attr indicating whether an initial response was forced.
func ForceIR(forced bool) slog.Attr {
	return slog.Bool(KeyForceIR, forced)
}

// HasIR returns a slog.Attr indicating whether an initial response was sent.
func HasIR(has bool) slog.Attr {
	return slog.Bool(KeyHasIR, has)
}

// ServerCode returns a slog.Attr for the result code returned by the carrier.
func ServerCode(code int) slog.Attr {
	return slog.Int(KeyServerCode, code)
}

// ContCode returns a slog.Attr for the configured continuation code.
func ContCode(code int) slog.Attr {
	return slog.Int(KeyContCode, code)
}

// FinalCode returns a slog.Attr for the configured success code.
func FinalCode(code int) slog.Attr {
	return slog.Int(KeyFinalCode, code)
}

// PayloadLen returns a slog.Attr for the length of an encoded/decoded payload.
func PayloadLen(n int) slog.Attr {
	return slog.Int(KeyPayloadLen, n)
}

// MaxIRLen returns a slog.Attr for the configured initial-response length cap.
func MaxIRLen(n int) slog.Attr {
	return slog.Int(KeyMaxIRLen, n)
}

// Username returns a slog.Attr for the authentication username.
func Username(name string) slog.Attr {
	return slog.String(KeyUsername, name)
}

// AuthzID returns a slog.Attr for the SASL authorization identity.
func AuthzID(id string) slog.Attr {
	return slog.String(KeyAuthzID, id)
}

// DurationMs returns a slog.Attr for duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Reason returns a slog.Attr explaining why a mechanism was not chosen.
func Reason(msg string) slog.Attr {
	return slog.String(KeyReason, msg)
}

// Attempt returns a slog.Attr for a retry/fallback attempt number.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}
