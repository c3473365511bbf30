package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// maxTokenSize is the maximum accepted size for a bearer token string
// (8 KB). Tokens larger than this are rejected before parsing to prevent
// resource exhaustion.
const maxTokenSize = 8192

// EntraTokenValidator verifies Microsoft Entra ID bearer tokens: RS256
// signature against the tenant's published signing keys, exact issuer
// match, audience match against the two accepted forms, time claims with
// symmetric clock-skew tolerance, and the required scope/role set.
//
// CRITICAL: jwt.WithValidMethods restricts accepted algorithms to RS256
// only, preventing algorithm confusion attacks where an attacker presents
// an HMAC-signed token and tricks the validator into using the public key
// as the shared secret. alg "none" is rejected by the same restriction.
//
// EntraTokenValidator is safe for concurrent use by multiple goroutines.
type EntraTokenValidator struct {
	issuer         string
	audiences      []string
	requiredScopes []string
	keys           *SigningKeyCache
	parserOpts     []jwt.ParserOption
	tracer         trace.Tracer
}

// NewEntraTokenValidator creates a validator from the given configuration,
// resolving signing keys through keys. The configuration must already be
// validated for entraid mode.
func NewEntraTokenValidator(cfg Config, keys *SigningKeyCache) *EntraTokenValidator {
	return &EntraTokenValidator{
		issuer:         cfg.Issuer(),
		audiences:      cfg.Audiences(),
		requiredScopes: append([]string(nil), cfg.RequiredScopes...),
		keys:           keys,
		parserOpts: []jwt.ParserOption{
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer(cfg.Issuer()),
			jwt.WithLeeway(cfg.ClockSkew),
			jwt.WithExpirationRequired(),
		},
		tracer: otel.Tracer(tracerName),
	}
}

// Validate verifies the raw bearer token and returns the AccessToken it
// represents, or a *[amrerr.Error] naming the failing check category. The
// denial message never echoes the token's actual claim values.
func (v *EntraTokenValidator) Validate(ctx context.Context, raw string) (*AccessToken, *amrerr.Error) {
	ctx, span := startSpan(ctx, v.tracer, "auth.EntraValidate")
	defer span.End()

	if raw == "" {
		err := amrerr.New(amrerr.CodeAuthenticationMalformed, "auth: empty bearer token")
		finishSpan(span, err)
		return nil, err
	}
	if len(raw) > maxTokenSize {
		err := amrerr.New(amrerr.CodeAuthenticationMalformed, "auth: token exceeds maximum size")
		finishSpan(span, err)
		return nil, err
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, amrerr.New(amrerr.CodeAuthenticationMalformed,
				"auth: token header missing key identifier")
		}
		return v.keys.Resolve(ctx, kid)
	}, v.parserOpts...)
	if err != nil {
		classified := classifyTokenError(err)
		finishSpan(span, classified)
		return nil, classified
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		invalidErr := amrerr.New(amrerr.CodeAuthenticationInvalid, "auth: invalid token claims")
		finishSpan(span, invalidErr)
		return nil, invalidErr
	}

	// The audience may be either "api://{client}" or the bare client ID
	// (the Azure CLI emits the bare form), so the single-audience parser
	// option cannot be used; check membership against both accepted forms.
	if !v.audienceAccepted(mc) {
		audErr := amrerr.New(amrerr.CodeAuthenticationAudience, "auth: token audience mismatch")
		finishSpan(span, audErr)
		return nil, audErr
	}

	access := newAccessToken(mc)
	span.SetAttributes(
		attribute.String("auth.subject", access.Subject),
		attribute.Int("auth.scope_count", len(access.Scopes)),
	)

	if !ScopesSatisfied(v.requiredScopes, access.Scopes) {
		scopeErr := amrerr.New(amrerr.CodeAuthorizationInsufficientScope,
			"auth: insufficient scope")
		finishSpan(span, scopeErr)
		return nil, scopeErr
	}

	return access, nil
}

// audienceAccepted reports whether any "aud" value matches an accepted
// audience form exactly.
func (v *EntraTokenValidator) audienceAccepted(mc jwt.MapClaims) bool {
	auds, err := mc.GetAudience()
	if err != nil {
		return false
	}
	for _, aud := range auds {
		for _, accepted := range v.audiences {
			if aud == accepted {
				return true
			}
		}
	}
	return false
}

// classifyTokenError converts a JWT library error to the matching
// *[amrerr.Error]. Errors already carrying a code (from the signing-key
// resolution path) pass through unchanged, preserving the distinction
// between an unknown key and a transient fetch failure.
func classifyTokenError(err error) *amrerr.Error {
	var coded *amrerr.Error
	if errors.As(err, &coded) {
		return coded
	}

	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return amrerr.Wrap(err, amrerr.CodeAuthenticationMalformed, "auth: token is malformed")
	case errors.Is(err, jwt.ErrTokenExpired):
		return amrerr.Wrap(err, amrerr.CodeAuthenticationExpired, "auth: token has expired")
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return amrerr.Wrap(err, amrerr.CodeAuthenticationNotYetValid, "auth: token is not yet valid")
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return amrerr.Wrap(err, amrerr.CodeAuthenticationIssuer, "auth: token issuer mismatch")
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return amrerr.Wrap(err, amrerr.CodeAuthenticationAudience, "auth: token audience mismatch")
	// The RSA signing method surfaces a failed verification as
	// ErrTokenSignatureInvalid; ErrSignatureInvalid only comes out of
	// the HMAC path.
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return amrerr.Wrap(err, amrerr.CodeAuthenticationSignature, "auth: token signature is invalid")
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return amrerr.Wrap(err, amrerr.CodeAuthenticationMalformed, "auth: token missing required claim")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return amrerr.Wrap(err, amrerr.CodeAuthenticationSignature, "auth: token signature cannot be verified")
	default:
		return amrerr.Wrap(err, amrerr.CodeAuthenticationInvalid, "auth: token validation failed")
	}
}
