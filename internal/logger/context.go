package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context.
var logContextKey = contextKey{}

// LogContext holds attempt-scoped logging context for one SaslSession.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	SessionID string    // Correlates all log lines for one auth attempt
	Carrier   string    // Carrier protocol: imap, smtp, pop3, ldap
	Mechanism string    // Currently selected mechanism, if any
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a session starting now.
func NewLogContext(sessionID, carrier string) *LogContext {
	return &LogContext{
		SessionID: sessionID,
		Carrier:   carrier,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		SessionID: lc.SessionID,
		Carrier:   lc.Carrier,
		Mechanism: lc.Mechanism,
		StartTime: lc.StartTime,
	}
}

// WithMechanism returns a copy with the mechanism set.
func (lc *LogContext) WithMechanism(mech string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Mechanism = mech
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}

// appendContextFields appends the LogContext fields found in ctx to args,
// so that every *Ctx log call is automatically correlated with its session.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	extra := make([]any, 0, 10)
	if lc.TraceID != "" {
		extra = append(extra, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		extra = append(extra, KeySpanID, lc.SpanID)
	}
	if lc.SessionID != "" {
		extra = append(extra, KeySessionID, lc.SessionID)
	}
	if lc.Carrier != "" {
		extra = append(extra, KeyCarrier, lc.Carrier)
	}
	if lc.Mechanism != "" {
		extra = append(extra, KeyMechanism, lc.Mechanism)
	}

	return append(args, extra...)
}
