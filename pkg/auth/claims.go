package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is the decoded, verified claim set of an admitted bearer
// token. It is created only after signature and standard-claim validation
// succeed, lives for the duration of the request, and is never persisted.
type AccessToken struct {
	// Subject is the token's "sub" claim: the principal the token was
	// issued to.
	Subject string

	// ClientID identifies the application that requested the token, from
	// the "appid" claim (v1 tokens) or "azp" (v2 tokens).
	ClientID string

	// TenantID is the issuing tenant, from the "tid" claim.
	TenantID string

	// Scopes is the union of the token's delegated permissions ("scp",
	// space-separated) and application roles ("roles", string array).
	Scopes []string

	// ExpiresAt is the token's expiration instant.
	ExpiresAt time.Time

	// Claims holds the full verified claim set for callers that need
	// claims beyond the promoted fields.
	Claims map[string]any
}

// HasScope reports whether the token grants the named scope or role.
func (t *AccessToken) HasScope(name string) bool {
	for _, s := range t.Scopes {
		if s == name {
			return true
		}
	}
	return false
}

// newAccessToken assembles an AccessToken from a verified claim set.
func newAccessToken(mc jwt.MapClaims) *AccessToken {
	token := &AccessToken{
		Scopes: scopesFromClaims(mc),
		Claims: map[string]any(mc),
	}

	token.Subject, _ = mc["sub"].(string)
	token.TenantID, _ = mc["tid"].(string)

	// v1 tokens carry the application ID in "appid", v2 tokens in "azp".
	if appid, ok := mc["appid"].(string); ok && appid != "" {
		token.ClientID = appid
	} else if azp, ok := mc["azp"].(string); ok {
		token.ClientID = azp
	}

	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		token.ExpiresAt = exp.Time
	}

	return token
}

// scopesFromClaims extracts the granted permission set: the union of the
// space-separated "scp" claim (delegated scopes) and the "roles" claim
// (application roles), deduplicated.
func scopesFromClaims(mc jwt.MapClaims) []string {
	seen := make(map[string]struct{})
	var scopes []string

	add := func(s string) {
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		scopes = append(scopes, s)
	}

	if scp, ok := mc["scp"].(string); ok {
		for _, s := range strings.Fields(scp) {
			add(s)
		}
	}

	if roles, ok := mc["roles"].([]any); ok {
		for _, r := range roles {
			if role, ok := r.(string); ok {
				add(role)
			}
		}
	}

	return scopes
}

// ScopesSatisfied reports whether the granted set covers every required
// scope. An empty required set is always satisfied. Matching is exact
// string membership; no prefix or suffix forms are accepted.
func ScopesSatisfied(required, granted []string) bool {
	if len(required) == 0 {
		return true
	}

	grantedSet := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		grantedSet[g] = struct{}{}
	}

	for _, r := range required {
		if _, ok := grantedSet[r]; !ok {
			return false
		}
	}
	return true
}
