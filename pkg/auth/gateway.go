package auth

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for auth spans.
const tracerName = "github.com/AzureManagedRedis/mcp-amr/pkg/auth"

// Decision is the terminal outcome of a gateway authorization check.
type Decision string

const (
	// DecisionDenied rejects the request; Verdict.Err carries the reason.
	DecisionDenied Decision = "denied"

	// DecisionAdmitted admits the request to the tool layer.
	DecisionAdmitted Decision = "admitted"

	// DecisionHealthBypass admits a health-probe request without
	// evaluating credentials.
	DecisionHealthBypass Decision = "health_bypass"
)

// Verdict is the single admit-or-deny result produced once per request.
// Exactly one of the following holds:
//
//   - Decision is DecisionAdmitted or DecisionHealthBypass and Err is nil;
//     Token is non-nil only for admitted entraid-mode requests.
//   - Decision is DecisionDenied and Err is non-nil.
type Verdict struct {
	Decision Decision
	Token    *AccessToken
	Err      *amrerr.Error
}

// Admitted reports whether the request may proceed.
func (v Verdict) Admitted() bool {
	return v.Decision == DecisionAdmitted || v.Decision == DecisionHealthBypass
}

// Request carries the authentication-relevant parts of an inbound request,
// extracted by the transport layer. The gateway never sees the body.
type Request struct {
	// Path is the request path, matched against the health bypass path.
	Path string

	// APIKey is the value of the shared-secret header, or empty.
	APIKey string

	// Authorization is the raw Authorization header value, or empty.
	Authorization string
}

// Gateway selects the active validator from the configured mode and routes
// each inbound request to it, applying the health-check bypass first. Every
// outcome is a typed [Verdict]; no error value or panic escapes past it.
//
// Gateway is safe for concurrent use; all state is immutable after
// construction except the signing-key cache, which synchronizes itself.
type Gateway struct {
	mode       Mode
	healthPath string
	apiKeys    *APIKeyValidator
	entra      *EntraTokenValidator
	keys       *SigningKeyCache
	tracer     trace.Tracer
}

// NewGateway builds a gateway for the configured mode. The configuration is
// validated first, so impossible combinations (api-key mode without keys,
// entraid mode without a tenant or client) fail construction instead of
// denying every request at runtime.
func NewGateway(cfg Config) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g := &Gateway{
		mode:       cfg.Mode,
		healthPath: cfg.HealthPath,
		tracer:     otel.Tracer(tracerName),
	}

	switch cfg.Mode {
	case ModeAPIKey:
		g.apiKeys = NewAPIKeyValidator(cfg.APIKeys)
	case ModeEntraID:
		g.keys = NewSigningKeyCache(cfg.KeySetURL(), cfg.KeySetTTL, cfg.FetchTimeout, cfg.HTTPClient)
		g.entra = NewEntraTokenValidator(cfg, g.keys)
	}

	return g, nil
}

// Mode returns the active authentication mode.
func (g *Gateway) Mode() Mode { return g.mode }

// Authorize produces the verdict for one inbound request. The health path
// bypasses authentication in every mode; otherwise the request is routed to
// the validator matching the configured mode.
func (g *Gateway) Authorize(ctx context.Context, req Request) Verdict {
	ctx, span := startSpan(ctx, g.tracer, "auth.Authorize")
	defer span.End()
	span.SetAttributes(attribute.String("auth.mode", string(g.mode)))

	if req.Path == g.healthPath {
		span.SetAttributes(attribute.String("auth.decision", string(DecisionHealthBypass)))
		return Verdict{Decision: DecisionHealthBypass}
	}

	verdict := g.dispatch(ctx, req)
	span.SetAttributes(attribute.String("auth.decision", string(verdict.Decision)))
	if verdict.Err != nil {
		finishSpan(span, verdict.Err)
	}
	return verdict
}

// dispatch routes to the mode's validator. An unknown mode (impossible
// after NewGateway, but reachable through a zero-value Gateway) denies with
// a configuration error rather than admitting by accident.
func (g *Gateway) dispatch(ctx context.Context, req Request) Verdict {
	switch g.mode {
	case ModeOpen:
		return Verdict{Decision: DecisionAdmitted}

	case ModeAPIKey:
		if err := g.apiKeys.Validate(ctx, req.APIKey); err != nil {
			return Verdict{Decision: DecisionDenied, Err: err}
		}
		return Verdict{Decision: DecisionAdmitted}

	case ModeEntraID:
		if req.Authorization == "" {
			return Verdict{
				Decision: DecisionDenied,
				Err:      amrerr.New(amrerr.CodeAuthenticationMissing, "auth: missing bearer token"),
			}
		}
		raw := ExtractBearerToken(req.Authorization)
		if raw == "" {
			return Verdict{
				Decision: DecisionDenied,
				Err:      amrerr.New(amrerr.CodeAuthenticationMalformed, "auth: malformed authorization header"),
			}
		}
		token, err := g.entra.Validate(ctx, raw)
		if err != nil {
			return Verdict{Decision: DecisionDenied, Err: err}
		}
		return Verdict{Decision: DecisionAdmitted, Token: token}

	default:
		return Verdict{
			Decision: DecisionDenied,
			Err: amrerr.New(amrerr.CodeInternalConfiguration,
				"auth: server authentication is misconfigured"),
		}
	}
}

// startSpan creates a new OpenTelemetry span with the given name. Returns
// the updated context and span.
func startSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}

// finishSpan records an error on the span if err is non-nil and sets the
// span status to Error. This is a helper for consistent error recording
// across validation paths.
func finishSpan(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
