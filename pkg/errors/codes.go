package errors

// Code is a stable machine-readable error code, CATEGORY_XXX, where the
// category prefix decides the HTTP status and the full code decides the
// JSON-RPC number. Codes never change meaning once assigned; clients
// may switch on them.
type Code string

// The taxonomy, by category:
//
//	VAL_xxx     validation (400)
//	AUTH_xxx    authentication (401)
//	AUTHZ_xxx   authorization (403)
//	NF_xxx      not found (404)
//	INT_xxx     internal (500)
//	UNAVAIL_xxx unavailable (503)
//	TIMEOUT_xxx timeout (504)
const (
	CodeValidation         Code = "VAL_001" // general validation failure
	CodeValidationRequired Code = "VAL_002" // required field missing
	CodeValidationFormat   Code = "VAL_003" // field has an invalid format

	// AUTH codes describe why a credential was rejected. Their messages
	// are shown to unauthenticated callers and must not reveal
	// server-side detail (which key matched, which claim value was
	// presented).

	// CodeAuthentication is the generic authentication failure, used
	// when none of the specific conditions below applies.
	CodeAuthentication Code = "AUTH_001"

	// CodeAuthenticationMissing indicates no credential was presented.
	CodeAuthenticationMissing Code = "AUTH_002"

	// CodeAuthenticationInvalid indicates the presented credential does
	// not match any configured credential.
	CodeAuthenticationInvalid Code = "AUTH_003"

	// CodeAuthenticationMalformed indicates the bearer token could not
	// be parsed as a JWT (bad structure, oversized, or wrong header
	// scheme).
	CodeAuthenticationMalformed Code = "AUTH_004"

	// CodeAuthenticationUnknownKey indicates the token names a signing
	// key that is not present in the issuer's published key set.
	CodeAuthenticationUnknownKey Code = "AUTH_005"

	// CodeAuthenticationSignature indicates the token signature did not
	// verify against the resolved signing key.
	CodeAuthenticationSignature Code = "AUTH_006"

	// CodeAuthenticationExpired indicates the token's expiration time
	// has passed, beyond the configured clock-skew tolerance.
	CodeAuthenticationExpired Code = "AUTH_007"

	// CodeAuthenticationNotYetValid indicates the token's not-before
	// time is in the future, beyond the configured clock-skew
	// tolerance.
	CodeAuthenticationNotYetValid Code = "AUTH_008"

	// CodeAuthenticationAudience indicates the token audience does not
	// match the configured expected audience.
	CodeAuthenticationAudience Code = "AUTH_009"

	// CodeAuthenticationIssuer indicates the token issuer does not
	// match the configured expected issuer.
	CodeAuthenticationIssuer Code = "AUTH_010"

	// CodeAuthorization is the generic authorization failure;
	// CodeAuthorizationInsufficientScope means the token's granted
	// scopes and roles do not cover the configured required set.
	CodeAuthorization                  Code = "AUTHZ_001"
	CodeAuthorizationInsufficientScope Code = "AUTHZ_002"

	CodeNotFound     Code = "NF_001"
	CodeNotFoundTool Code = "NF_002" // requested tool is not registered

	CodeInternal         Code = "INT_001"
	CodeInternalDatabase Code = "INT_002" // data-store operation failed

	// CodeInternalConfiguration is returned on every request when the
	// gateway runs with a configuration it cannot honor (api-key mode
	// with no keys), so operators can tell "bad client" from "broken
	// server".
	CodeInternalConfiguration Code = "INT_003"

	// UNAVAIL denials mean a dependency (issuer key endpoint, data
	// store) is temporarily unreachable. They are safe to retry and are
	// never equated with an invalid credential.
	CodeUnavailable           Code = "UNAVAIL_001"
	CodeUnavailableDependency Code = "UNAVAIL_002"

	CodeTimeout           Code = "TIMEOUT_001"
	CodeTimeoutDatabase   Code = "TIMEOUT_002" // data-store operation timed out
	CodeTimeoutDependency Code = "TIMEOUT_003" // dependent service call timed out
)

func (c Code) String() string {
	return string(c)
}

// Category returns the prefix before the first underscore, "AUTH" for
// AUTH_007. A code with no underscore is its own category.
func (c Code) Category() string {
	s := string(c)
	for i, r := range s {
		if r == '_' {
			return s[:i]
		}
	}
	return s
}

// JSON-RPC numbers for the MCP error envelope, in the server-defined
// -32000..-32099 range. -32001 was the single code the original server
// emitted for every authentication failure and stays as the generic
// case; the rest give each denial its own stable number.
const (
	jsonrpcAuthGeneric       = -32001
	jsonrpcAuthMissing       = -32002
	jsonrpcAuthInvalid       = -32003
	jsonrpcAuthMalformed     = -32004
	jsonrpcAuthUnknownKey    = -32005
	jsonrpcAuthSignature     = -32006
	jsonrpcAuthExpired       = -32007
	jsonrpcAuthNotYetValid   = -32008
	jsonrpcAuthAudience      = -32009
	jsonrpcAuthIssuer        = -32010
	jsonrpcInsufficientScope = -32011
	jsonrpcMisconfigured     = -32012
	jsonrpcUnavailable       = -32013
	jsonrpcTimeout           = -32014
	jsonrpcInternal          = -32015
)

// JSONRPCCode maps the code to its JSON-RPC number. AUTH and AUTHZ
// conditions get per-condition numbers; the remaining categories
// collapse to one number each.
func (c Code) JSONRPCCode() int {
	switch c {
	case CodeAuthenticationMissing:
		return jsonrpcAuthMissing
	case CodeAuthenticationInvalid:
		return jsonrpcAuthInvalid
	case CodeAuthenticationMalformed:
		return jsonrpcAuthMalformed
	case CodeAuthenticationUnknownKey:
		return jsonrpcAuthUnknownKey
	case CodeAuthenticationSignature:
		return jsonrpcAuthSignature
	case CodeAuthenticationExpired:
		return jsonrpcAuthExpired
	case CodeAuthenticationNotYetValid:
		return jsonrpcAuthNotYetValid
	case CodeAuthenticationAudience:
		return jsonrpcAuthAudience
	case CodeAuthenticationIssuer:
		return jsonrpcAuthIssuer
	case CodeInternalConfiguration:
		return jsonrpcMisconfigured
	}

	switch c.Category() {
	case "AUTH":
		return jsonrpcAuthGeneric
	case "AUTHZ":
		return jsonrpcInsufficientScope
	case "UNAVAIL":
		return jsonrpcUnavailable
	case "TIMEOUT":
		return jsonrpcTimeout
	default:
		return jsonrpcInternal
	}
}
