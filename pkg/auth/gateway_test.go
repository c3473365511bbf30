package auth

import (
	"context"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

func TestNewGateway_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{
			name: "unknown mode",
			cfg:  Config{Mode: "saml", HealthPath: "/health"},
		},
		{
			name: "api-key mode without keys",
			cfg:  Config{Mode: ModeAPIKey, HealthPath: "/health"},
		},
		{
			name: "entraid mode without tenant or overrides",
			cfg:  Config{Mode: ModeEntraID, HealthPath: "/health"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, err := NewGateway(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, gw)
		})
	}
}

func TestGateway_OpenMode(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	gw, err := NewGateway(cfg)
	require.NoError(t, err)
	assert.Equal(t, ModeOpen, gw.Mode())

	// No credentials of any kind.
	v := gw.Authorize(context.Background(), Request{Path: "/message"})
	assert.Equal(t, DecisionAdmitted, v.Decision)
	assert.True(t, v.Admitted())
	assert.Nil(t, v.Err)
	assert.Nil(t, v.Token)

	// Credentials present in open mode are ignored, not validated.
	v = gw.Authorize(context.Background(), Request{
		Path:          "/message",
		APIKey:        "whatever",
		Authorization: "Bearer garbage",
	})
	assert.Equal(t, DecisionAdmitted, v.Decision)
	assert.Nil(t, v.Err)
}

func TestGateway_APIKeyMode(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mode = ModeAPIKey
	cfg.APIKeys = []Secret{"k1", "k2"}
	gw, err := NewGateway(cfg)
	require.NoError(t, err)

	tests := []struct {
		name     string
		key      string
		admitted bool
		code     amrerr.Code
	}{
		{name: "first key", key: "k1", admitted: true},
		{name: "second key", key: "k2", admitted: true},
		{name: "wrong key", key: "k3", code: amrerr.CodeAuthenticationInvalid},
		{name: "missing key", key: "", code: amrerr.CodeAuthenticationMissing},
		{name: "prefix of a key", key: "k", code: amrerr.CodeAuthenticationInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := gw.Authorize(context.Background(), Request{Path: "/message", APIKey: tt.key})
			if tt.admitted {
				assert.Equal(t, DecisionAdmitted, v.Decision)
				assert.Nil(t, v.Err)
			} else {
				assert.Equal(t, DecisionDenied, v.Decision)
				require.NotNil(t, v.Err)
				assert.Equal(t, tt.code, v.Err.Code)
			}
		})
	}
}

func TestGateway_HealthBypass_AllModes(t *testing.T) {
	t.Parallel()

	_, pub := authTestGenerateRSAKeyPair(t)
	srv := authTestServeJWKS(t, map[string]*rsa.PublicKey{"kid-1": pub})

	apiKeyCfg := DefaultConfig()
	apiKeyCfg.Mode = ModeAPIKey
	apiKeyCfg.APIKeys = []Secret{"k1"}

	configs := map[string]Config{
		"open":    DefaultConfig(),
		"api-key": apiKeyCfg,
		"entraid": entraTestConfig(srv.URL),
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			gw, err := NewGateway(cfg)
			require.NoError(t, err)

			// No credentials at all on the health path.
			v := gw.Authorize(context.Background(), Request{Path: "/health"})
			assert.Equal(t, DecisionHealthBypass, v.Decision)
			assert.True(t, v.Admitted())
			assert.Nil(t, v.Err)
		})
	}
}

func TestGateway_HealthBypass_ExactPathOnly(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mode = ModeAPIKey
	cfg.APIKeys = []Secret{"k1"}
	gw, err := NewGateway(cfg)
	require.NoError(t, err)

	for _, path := range []string{"/healthz", "/health/live", "/Health"} {
		v := gw.Authorize(context.Background(), Request{Path: path})
		assert.Equal(t, DecisionDenied, v.Decision, "path %s must not bypass auth", path)
	}
}

func TestGateway_EntraMode(t *testing.T) {
	t.Parallel()

	priv, pub := authTestGenerateRSAKeyPair(t)
	srv := authTestServeJWKS(t, map[string]*rsa.PublicKey{"kid-1": pub})

	gw, err := NewGateway(entraTestConfig(srv.URL))
	require.NoError(t, err)

	t.Run("valid token admitted with claims", func(t *testing.T) {
		tokenStr := authTestGenerateRSAToken(t, priv, "kid-1", entraTestClaims())
		v := gw.Authorize(context.Background(), Request{
			Path:          "/message",
			Authorization: "Bearer " + tokenStr,
		})
		assert.Equal(t, DecisionAdmitted, v.Decision)
		require.NotNil(t, v.Token)
		assert.Equal(t, "user-1", v.Token.Subject)
	})

	t.Run("missing authorization header", func(t *testing.T) {
		v := gw.Authorize(context.Background(), Request{Path: "/message"})
		assert.Equal(t, DecisionDenied, v.Decision)
		require.NotNil(t, v.Err)
		assert.Equal(t, amrerr.CodeAuthenticationMissing, v.Err.Code)
	})

	t.Run("non-bearer scheme", func(t *testing.T) {
		v := gw.Authorize(context.Background(), Request{
			Path:          "/message",
			Authorization: "Basic dXNlcjpwYXNz",
		})
		assert.Equal(t, DecisionDenied, v.Decision)
		require.NotNil(t, v.Err)
		assert.Equal(t, amrerr.CodeAuthenticationMalformed, v.Err.Code)
	})

	t.Run("api key header is ignored in entraid mode", func(t *testing.T) {
		v := gw.Authorize(context.Background(), Request{
			Path:   "/message",
			APIKey: "k1",
		})
		assert.Equal(t, DecisionDenied, v.Decision)
		require.NotNil(t, v.Err)
		assert.Equal(t, amrerr.CodeAuthenticationMissing, v.Err.Code)
	})
}

func TestGateway_ZeroValueDenies(t *testing.T) {
	t.Parallel()

	var gw Gateway
	v := gw.dispatch(context.Background(), Request{Path: "/message"})
	assert.Equal(t, DecisionDenied, v.Decision)
	require.NotNil(t, v.Err)
	assert.Equal(t, amrerr.CodeInternalConfiguration, v.Err.Code)
}

func TestGateway_AuthorizeIdempotent(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Mode = ModeAPIKey
	cfg.APIKeys = []Secret{"k1"}
	gw, err := NewGateway(cfg)
	require.NoError(t, err)

	req := Request{Path: "/message", APIKey: "k1"}
	first := gw.Authorize(context.Background(), req)
	second := gw.Authorize(context.Background(), req)
	assert.Equal(t, first.Decision, second.Decision)

	bad := Request{Path: "/message", APIKey: "nope"}
	firstBad := gw.Authorize(context.Background(), bad)
	secondBad := gw.Authorize(context.Background(), bad)
	require.NotNil(t, firstBad.Err)
	require.NotNil(t, secondBad.Err)
	assert.Equal(t, firstBad.Err.Code, secondBad.Err.Code)
}
