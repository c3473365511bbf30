package errors

import (
	"fmt"
)

// New creates an Error with the given code and message. Use it when the
// failure originates here rather than from an underlying call.
//
// Example:
//
//	err := errors.New(errors.CodeAuthenticationMissing, "no credential presented")
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf is New with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeNotFoundTool, "tool %q not found", name)
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap builds an Error around an underlying cause. The cause stays
// reachable through errors.Is/errors.As; the code and message of the
// wrapper are what callers and clients see. Wrap returns nil when err
// is nil so it can be applied unconditionally on return paths.
//
// Example:
//
//	keys, err := fetchKeySet(ctx, url)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeUnavailableDependency,
//	        "signing key set unavailable")
//	}
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}
