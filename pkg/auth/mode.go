// Package auth implements the authentication gateway that fronts the MCP
// request router. It supports three mutually exclusive modes selected by
// configuration: open access, static API keys compared in constant time,
// and Microsoft Entra ID bearer tokens verified against the tenant's
// published signing keys.
//
// The [Gateway] produces one [Verdict] per request; the router acts on the
// verdict and never inspects validator internals. Denial messages returned
// to callers are deliberately generic; the full reason is logged server-side.
package auth

import (
	"fmt"
	"time"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// Mode selects which validator the gateway routes requests to. The mode is
// fixed for the process lifetime; changing it requires a restart.
type Mode string

const (
	// ModeOpen admits every request without credentials.
	ModeOpen Mode = "open"

	// ModeAPIKey requires a configured shared-secret key in the
	// X-API-Key header.
	ModeAPIKey Mode = "api-key"

	// ModeEntraID requires a Microsoft Entra ID bearer token in the
	// Authorization header.
	ModeEntraID Mode = "entraid"
)

// ParseMode converts a string to a [Mode]. Returns a *[amrerr.Error] with
// code [amrerr.CodeValidation] for unrecognized values.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeOpen, ModeAPIKey, ModeEntraID:
		return Mode(s), nil
	default:
		return "", amrerr.Newf(amrerr.CodeValidation,
			"auth: unknown auth mode %q (expected open, api-key, or entraid)", s)
	}
}

// Config holds the gateway configuration. Exactly one mode is active; each
// mode reads only its own fields. Env tags follow the layered loader
// conventions in pkg/config.
type Config struct {
	// Mode selects the active validator. Defaults to open.
	Mode Mode `json:"mode" yaml:"mode" env:"AUTH_MODE" envDefault:"open"`

	// HealthPath is the request path exempt from authentication in every
	// mode, so orchestration probes keep working when everything else is
	// locked down. Defaults to "/health".
	HealthPath string `json:"health_path" yaml:"health_path" env:"AUTH_HEALTH_PATH" envDefault:"/health"`

	// APIKeys is the ordered set of admissible shared-secret keys for
	// api-key mode. Must be non-empty when Mode is api-key. The Secret
	// element type keeps key values out of logs and serialized output.
	APIKeys []Secret `json:"-" yaml:"-" env:"AUTH_API_KEYS"`

	// TenantID is the Entra ID tenant (directory) identifier. Required
	// when Mode is entraid.
	TenantID string `json:"tenant_id,omitempty" yaml:"tenant_id" env:"AUTH_ENTRA_TENANT_ID"`

	// ClientID is the application (client) identifier registered in the
	// tenant. Tokens are accepted with audience "api://{ClientID}" or the
	// bare "{ClientID}" (the Azure CLI emits the bare form). Required
	// when Mode is entraid.
	ClientID string `json:"client_id,omitempty" yaml:"client_id" env:"AUTH_ENTRA_CLIENT_ID"`

	// RequiredScopes is the set of scope/role names a token must grant.
	// An empty set means any validly signed token for this audience is
	// authorized.
	RequiredScopes []string `json:"required_scopes,omitempty" yaml:"required_scopes" env:"AUTH_ENTRA_REQUIRED_SCOPES"`

	// IssuerURL overrides the expected token issuer. When empty, the
	// issuer is derived from TenantID as
	// "https://login.microsoftonline.com/{tenant}/v2.0".
	IssuerURL string `json:"issuer_url,omitempty" yaml:"issuer_url" env:"AUTH_ENTRA_ISSUER_URL"`

	// JWKSURL overrides the signing-key set endpoint. When empty, the
	// URL is derived from TenantID as
	// "https://login.microsoftonline.com/{tenant}/discovery/v2.0/keys".
	// Tests point this at a local server.
	JWKSURL string `json:"jwks_url,omitempty" yaml:"jwks_url" env:"AUTH_ENTRA_JWKS_URL"`

	// ClockSkew is the symmetric tolerance applied to the exp and nbf
	// claims. Must be non-negative. Defaults to 30 seconds.
	ClockSkew time.Duration `json:"clock_skew" yaml:"clock_skew" env:"AUTH_CLOCK_SKEW" envDefault:"30s"`

	// KeySetTTL is how long a fetched signing-key set is trusted before
	// a new verification triggers a refresh. Must be non-negative.
	// Defaults to 30 minutes.
	KeySetTTL time.Duration `json:"key_set_ttl" yaml:"key_set_ttl" env:"AUTH_KEY_SET_TTL" envDefault:"30m"`

	// FetchTimeout bounds a single signing-key set fetch. Must be
	// positive. Defaults to 10 seconds.
	FetchTimeout time.Duration `json:"fetch_timeout" yaml:"fetch_timeout" env:"AUTH_FETCH_TIMEOUT" envDefault:"10s"`

	// HTTPClient performs signing-key set fetches. If nil, a default
	// client with FetchTimeout is used.
	HTTPClient HTTPClient `json:"-" yaml:"-"`
}

// entraBaseURL is the Entra ID authority all tenant endpoints hang off.
const entraBaseURL = "https://login.microsoftonline.com"

// Issuer returns the expected "iss" claim value: the configured override,
// or the v2.0 issuer derived from the tenant.
func (c *Config) Issuer() string {
	if c.IssuerURL != "" {
		return c.IssuerURL
	}
	return fmt.Sprintf("%s/%s/v2.0", entraBaseURL, c.TenantID)
}

// KeySetURL returns the signing-key set endpoint: the configured override,
// or the tenant's discovery endpoint.
func (c *Config) KeySetURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return fmt.Sprintf("%s/%s/discovery/v2.0/keys", entraBaseURL, c.TenantID)
}

// Audiences returns the accepted "aud" claim values for the configured
// client: the api:// URI form and the bare client ID.
func (c *Config) Audiences() []string {
	return []string{"api://" + c.ClientID, c.ClientID}
}

// Validate checks the configuration for logical correctness and returns a
// *[amrerr.Error] with code [amrerr.CodeValidation] if any field is invalid.
// Misconfigurations detectable here fail startup loudly instead of denying
// every request at runtime.
func (c *Config) Validate() *amrerr.Error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return amrerr.Newf(amrerr.CodeValidation, "auth: invalid mode %q", c.Mode)
	}

	if c.HealthPath == "" {
		return amrerr.New(amrerr.CodeValidation, "auth: health path must not be empty")
	}

	if c.Mode == ModeAPIKey && len(c.APIKeys) == 0 {
		return amrerr.New(amrerr.CodeValidation,
			"auth: api-key mode requires at least one configured key")
	}

	if c.Mode == ModeEntraID {
		if c.TenantID == "" && c.IssuerURL == "" {
			return amrerr.New(amrerr.CodeValidation,
				"auth: entraid mode requires a tenant ID or issuer URL")
		}
		if c.ClientID == "" {
			return amrerr.New(amrerr.CodeValidation,
				"auth: entraid mode requires a client ID")
		}
		if c.TenantID == "" && c.JWKSURL == "" {
			return amrerr.New(amrerr.CodeValidation,
				"auth: entraid mode requires a tenant ID or JWKS URL")
		}
	}

	if c.ClockSkew < 0 {
		return amrerr.New(amrerr.CodeValidation, "auth: clock skew must be non-negative")
	}
	if c.KeySetTTL < 0 {
		return amrerr.New(amrerr.CodeValidation, "auth: key set TTL must be non-negative")
	}
	if c.FetchTimeout < 0 {
		return amrerr.New(amrerr.CodeValidation, "auth: fetch timeout must be non-negative")
	}

	return nil
}

// DefaultConfig returns a Config with the defaults applied: open mode,
// /health bypass, 30s clock skew, 30m key set TTL, 10s fetch timeout.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeOpen,
		HealthPath:   "/health",
		ClockSkew:    30 * time.Second,
		KeySetTTL:    30 * time.Minute,
		FetchTimeout: 10 * time.Second,
	}
}
