package errors

import (
	"fmt"
	"net/http"
)

// Error is the structured error carried across the gateway. Every failure
// that crosses a package boundary is wrapped in one so the HTTP layer can
// map it to a status code and the MCP layer to a JSON-RPC error envelope
// without inspecting message text.
//
// An Error is never mutated after construction. WithDetail and WithDetails
// return copies, so a shared sentinel can be annotated per request safely.
type Error struct {
	// Code is the machine-readable error code (e.g., "AUTH_003").
	Code Code

	// Message is safe for clients. Secrets, key material, and internal
	// addresses belong in Cause or Details, which stay server-side.
	Message string

	// Cause is the wrapped underlying error, exposed through Unwrap so
	// errors.Is and errors.As see the full chain.
	Cause error

	// Details holds structured context for logs, such as the name of the
	// argument that failed validation or the scope that was missing.
	Details map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error's code category to the status the gateway
// returns on the transport: validation 400, authentication 401,
// authorization 403, not-found 404, unavailable 503, timeout 504, and
// 500 for everything internal or unrecognized.
func (e *Error) HTTPStatus() int {
	switch e.Code.Category() {
	case "VAL":
		return http.StatusBadRequest
	case "AUTH":
		return http.StatusUnauthorized
	case "AUTHZ":
		return http.StatusForbidden
	case "NF":
		return http.StatusNotFound
	case "UNAVAIL":
		return http.StatusServiceUnavailable
	case "TIMEOUT":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// JSONRPCCode returns the stable numeric JSON-RPC error code for this
// error, for use in the MCP error envelope. See [Code.JSONRPCCode].
func (e *Error) JSONRPCCode() int {
	return e.Code.JSONRPCCode()
}

// WithDetails returns a copy of the error with the given entries merged
// into Details. Later entries overwrite earlier ones on key collision.
func (e *Error) WithDetails(details map[string]any) *Error {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Cause:   e.Cause,
		Details: merged,
	}
}

// WithDetail returns a copy of the error with a single detail added.
func (e *Error) WithDetail(key string, value any) *Error {
	return e.WithDetails(map[string]any{key: value})
}
