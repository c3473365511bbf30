package auth

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// contextKey keeps this package's context values from colliding with
// other packages'.
type contextKey int

const accessTokenKey contextKey = iota

// ContextWithAccessToken attaches a verified AccessToken to the
// context. [Middleware] calls this after admitting an entraid-mode
// request; handlers read it back with [AccessTokenFromContext].
func ContextWithAccessToken(ctx context.Context, token *AccessToken) context.Context {
	return context.WithValue(ctx, accessTokenKey, token)
}

// AccessTokenFromContext returns the AccessToken set by the middleware,
// or false when none is present. Open and api-key mode requests carry
// no token.
//
//	token, ok := auth.AccessTokenFromContext(ctx)
//	if ok {
//	    slog.InfoContext(ctx, "tool call", "subject", token.Subject)
//	}
func AccessTokenFromContext(ctx context.Context) (*AccessToken, bool) {
	token, ok := ctx.Value(accessTokenKey).(*AccessToken)
	return token, ok
}

// TraceIDFromContext returns the active OpenTelemetry trace ID as hex,
// or false when no trace is recording. Denial logs carry it so an
// authentication event can be matched to its distributed trace.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.TraceID().String(), true
}

// SpanIDFromContext is the span counterpart of [TraceIDFromContext].
func SpanIDFromContext(ctx context.Context) (string, bool) {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.HasTraceID() {
		return "", false
	}
	return spanCtx.SpanID().String(), true
}
