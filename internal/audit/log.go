// Package audit emits structured audit events for actions that change who
// can see clinic data: claims, approvals, revocations, transfers.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"mediflow.org/internal/identity"
	"mediflow.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request identifier previously attached
// with WithRequestID, or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and principal
// context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}

	logger := obs.Logger()
	e := logger.Info().
		Str("type", "audit").
		Str("event", event).
		Time("occurred_at", time.Now().UTC())

	if rid := RequestIDFromContext(ctx); rid != "" {
		e = e.Str("request_id", rid)
	}
	if p, ok := identity.PrincipalFromContext(ctx); ok {
		e = e.Str("principal_id", p.ID)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Send()
	return nil
}
