// Package errors provides standardized error types and error handling
// utilities for the Azure Managed Redis MCP server. It defines the error
// taxonomy the authentication gateway and transport layer share: common
// error categories, stable error codes, and helper functions for creating,
// wrapping, and inspecting errors.
//
// # Error Categories
//
// The package defines several error categories that map to common failure
// scenarios:
//
//   - Validation errors: Invalid input or configuration values
//   - Authentication errors: Missing, invalid, malformed, or expired credentials
//   - Authorization errors: Insufficient scopes or roles
//   - NotFound errors: Resource or tool does not exist
//   - Internal errors: Unexpected system failures, misconfiguration
//   - Unavailable errors: A dependency is temporarily unreachable (retryable)
//   - Timeout errors: Operation exceeded its time limit (retryable)
//
// # Error Codes
//
// Each error includes a machine-readable code (e.g., "AUTH_003") that can be
// used for tracking, alerting, and client-side handling. Codes follow the
// pattern CATEGORY_XXX. Every code additionally maps to a stable numeric
// JSON-RPC error code via [Code.JSONRPCCode] for the MCP error envelope.
//
// # Usage
//
// Create a new error with context:
//
//	err := errors.New(errors.CodeAuthenticationMissing, "missing API key")
//
// Wrap an existing error:
//
//	err := errors.Wrap(err, errors.CodeUnavailableDependency, "signing key fetch failed")
//
// Check error category:
//
//	if errors.IsAuthentication(err) {
//	    // respond 401
//	}
//
// Extract error details for logging:
//
//	if e, ok := errors.AsError(err); ok {
//	    logger.Error("request denied",
//	        "code", e.Code,
//	        "message", e.Message,
//	    )
//	}
package errors
