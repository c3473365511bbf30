package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// Header names consumed by the gateway.
const (
	// HeaderAPIKey carries the shared-secret credential in api-key mode.
	HeaderAPIKey = "X-API-Key"

	// HeaderAuthorization carries the bearer token in entraid mode.
	HeaderAuthorization = "Authorization"
)

// bearerPrefix is the authorization scheme prefix, matched
// case-insensitively per RFC 6750.
const bearerPrefix = "bearer "

// ExtractBearerToken returns the token portion of an Authorization header
// value, or an empty string if the header does not use the Bearer scheme.
func ExtractBearerToken(header string) string {
	if len(header) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// RequestFromHTTP extracts the authentication-relevant parts of an HTTP
// request into a gateway [Request].
func RequestFromHTTP(r *http.Request) Request {
	return Request{
		Path:          r.URL.Path,
		APIKey:        r.Header.Get(HeaderAPIKey),
		Authorization: r.Header.Get(HeaderAuthorization),
	}
}

// Middleware returns an HTTP middleware that authorizes every request
// through the gateway before it reaches the wrapped handler.
//
// On denial the middleware writes a JSON-RPC 2.0 error envelope with the
// taxonomy's stable numeric code and a generic message, and logs the full
// reason server-side. On admission the request proceeds unmodified, with
// the verified [AccessToken] (entraid mode only) stored in the request
// context for handlers that need the caller's claims.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/message", handleMessage)
//	handler := auth.Middleware(gateway)(mux)
//	http.ListenAndServe(":8080", handler)
func Middleware(gw *Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			verdict := gw.Authorize(ctx, RequestFromHTTP(r))

			if !verdict.Admitted() {
				logDenial(ctx, r, verdict.Err)
				writeJSONRPCError(w, verdict.Err)
				return
			}

			if verdict.Token != nil {
				ctx = ContextWithAccessToken(ctx, verdict.Token)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// logDenial records the full denial reason server-side, including the
// wrapped cause the caller never sees, correlated with the active trace.
func logDenial(ctx context.Context, r *http.Request, err *amrerr.Error) {
	attrs := []any{
		"code", err.Code.String(),
		"reason", err.Message,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
	}
	if err.Cause != nil {
		attrs = append(attrs, "cause", err.Cause.Error())
	}
	if traceID, ok := TraceIDFromContext(ctx); ok {
		attrs = append(attrs, "trace_id", traceID)
	}
	slog.WarnContext(ctx, "auth: request denied", attrs...)
}

// jsonrpcErrorEnvelope is the JSON-RPC 2.0 error response written on
// denial. The id is null: the body has not been read, so the request id
// is unknown at this layer.
type jsonrpcErrorEnvelope struct {
	JSONRPC string             `json:"jsonrpc"`
	ID      any                `json:"id"`
	Error   jsonrpcErrorDetail `json:"error"`
}

type jsonrpcErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeJSONRPCError writes the denial as a JSON-RPC error envelope. The
// HTTP status follows the taxonomy (401 for authentication, 403 for
// authorization, 503 for transient dependency failures); the numeric
// JSON-RPC code is the stable per-reason value.
func writeJSONRPCError(w http.ResponseWriter, err *amrerr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.HTTPStatus())

	envelope := jsonrpcErrorEnvelope{
		JSONRPC: "2.0",
		ID:      nil,
		Error: jsonrpcErrorDetail{
			Code:    err.JSONRPCCode(),
			Message: err.Message,
		},
	}
	// Encoding a fixed-shape struct cannot fail; ignore the writer error
	// as the response is already committed.
	_ = json.NewEncoder(w).Encode(envelope)
}
