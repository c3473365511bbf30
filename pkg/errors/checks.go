package errors

import (
	"errors"
)

// AsError unwraps err to the first *Error in its chain. The second
// return reports whether one was found.
//
// Example:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Warn("request denied", "code", e.Code)
//	}
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetCode returns the code carried by err, or the empty string when err
// is nil or carries no *Error in its chain.
func GetCode(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries exactly the given code. Useful in
// tests and in dispatch paths that branch on a single specific denial.
func HasCode(err error, code Code) bool {
	return GetCode(err) == code
}

// inCategory reports whether err carries an *Error whose code falls in
// one of the given categories.
func inCategory(err error, categories ...string) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	cat := e.Code.Category()
	for _, c := range categories {
		if cat == c {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is a validation failure (VAL family).
// The transport maps these to JSON-RPC invalid-params style responses.
func IsValidation(err error) bool { return inCategory(err, "VAL") }

// IsAuthentication reports whether err is an authentication denial
// (AUTH family): missing, malformed, expired, or unverifiable
// credentials. Maps to HTTP 401 at the gateway boundary.
func IsAuthentication(err error) bool { return inCategory(err, "AUTH") }

// IsAuthorization reports whether err is an authorization denial
// (AUTHZ family): the credential verified but lacks required scopes.
// Maps to HTTP 403 at the gateway boundary.
func IsAuthorization(err error) bool { return inCategory(err, "AUTHZ") }

// IsNotFound reports whether err is a not-found failure (NF family),
// such as a tools/call against an unregistered tool name.
func IsNotFound(err error) bool { return inCategory(err, "NF") }

// IsInternal reports whether err is an internal failure (INT family),
// including gateway misconfiguration detected per-request.
func IsInternal(err error) bool { return inCategory(err, "INT") }

// IsUnavailable reports whether err is a transient dependency failure
// (UNAVAIL family), such as an unreachable signing-key endpoint or
// Redis deployment. Maps to HTTP 503.
func IsUnavailable(err error) bool { return inCategory(err, "UNAVAIL") }

// IsTimeout reports whether err is a deadline failure (TIMEOUT family).
// Maps to HTTP 504.
func IsTimeout(err error) bool { return inCategory(err, "TIMEOUT") }

// IsRetryable reports whether a later identical request could plausibly
// succeed. Only the transient families qualify; an invalid token stays
// invalid no matter how often it is retried.
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    // surface 503/504 so the client backs off and retries
//	}
func IsRetryable(err error) bool { return inCategory(err, "TIMEOUT", "UNAVAIL") }

// IsClientError reports whether err is attributable to the caller
// (4xx at the HTTP boundary): validation, authentication,
// authorization, and not-found failures.
func IsClientError(err error) bool { return inCategory(err, "VAL", "AUTH", "AUTHZ", "NF") }

// IsServerError reports whether err is attributable to this server or
// its dependencies (5xx at the HTTP boundary): internal, unavailable,
// and timeout failures.
func IsServerError(err error) bool { return inCategory(err, "INT", "UNAVAIL", "TIMEOUT") }
