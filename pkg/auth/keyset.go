package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// HTTPClient is the slice of [http.Client] the key fetcher needs,
// kept as an interface so tests can stub the issuer endpoint and
// callers can supply a client with their own transport settings.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// SigningKeyCache fetches, caches, and refreshes the public signing keys
// published at a JWKS endpoint, and serves lookups by key identifier (kid).
//
// A fetched key set is trusted for the configured TTL. A lookup that misses
// in a fresh cache (or hits a stale cache) triggers exactly one refresh,
// replacing the cached set wholesale, before the lookup is retried once;
// this is what makes issuer-side key rotation transparent. Concurrent
// refreshes are coalesced into a single in-flight fetch via singleflight,
// so a burst of requests after expiry costs one upstream call.
//
// SigningKeyCache is safe for concurrent use by multiple goroutines.
type SigningKeyCache struct {
	url          string
	ttl          time.Duration
	fetchTimeout time.Duration
	client       HTTPClient

	group singleflight.Group

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// NewSigningKeyCache creates a cache for the key set published at url.
// A zero ttl means every resolution refetches (useful in tests); a zero
// fetchTimeout disables the per-fetch bound and relies on the caller's
// context alone. If client is nil, a default [http.Client] using
// fetchTimeout is used.
func NewSigningKeyCache(url string, ttl, fetchTimeout time.Duration, client HTTPClient) *SigningKeyCache {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &SigningKeyCache{
		url:          url,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		client:       client,
	}
}

// Resolve returns the public key for the given key identifier. On a fresh
// cache hit it returns immediately. On a miss or a stale cache it performs
// one refresh and retries the lookup once.
//
// Error codes distinguish the two failure families:
//
//   - [amrerr.CodeAuthenticationUnknownKey]: the refreshed key set does not
//     contain the kid; the presented token cannot be verified and retrying
//     will not help.
//   - [amrerr.CodeUnavailableDependency] / [amrerr.CodeTimeoutDependency]:
//     the key set could not be fetched; transient, safe to retry later, and
//     never to be treated as a rejection of the caller's token.
func (c *SigningKeyCache) Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	fresh := c.keys != nil && time.Since(c.fetchedAt) < c.ttl
	if fresh {
		if key, ok := c.keys[kid]; ok {
			c.mu.RUnlock()
			return key, nil
		}
	}
	c.mu.RUnlock()

	// Miss, stale, or rotation: exactly one refresh, then one retry.
	if err := c.refresh(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	key, ok := c.keys[kid]
	c.mu.RUnlock()
	if !ok {
		return nil, amrerr.Newf(amrerr.CodeAuthenticationUnknownKey,
			"auth: signing key %q not found in issuer key set", kid)
	}
	return key, nil
}

// refresh fetches the key set and replaces the cache wholesale. Concurrent
// callers share a single in-flight fetch rather than issuing duplicates.
func (c *SigningKeyCache) refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		fetchCtx := ctx
		if c.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
			defer cancel()
		}

		keys, err := c.fetch(fetchCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, amrerr.Wrap(err, amrerr.CodeTimeoutDependency,
					"auth: signing key fetch timed out")
			}
			return nil, amrerr.Wrap(err, amrerr.CodeUnavailableDependency,
				"auth: signing key set temporarily unavailable")
		}

		c.mu.Lock()
		c.keys = keys
		c.fetchedAt = time.Now()
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

// jwksResponse is the wire shape of the JWKS document.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey carries only the fields RSA reconstruction needs; Entra ID
// signs with RS256.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// fetch GETs the key set URL and builds a kid-to-key map, skipping
// non-RSA and malformed entries. Response bodies are read up to 1 MB;
// anything larger is cut off.
func (c *SigningKeyCache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to create key set request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: key set request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: key set endpoint returned status %d", resp.StatusCode)
	}

	var jwks jwksResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("auth: failed to parse key set JSON: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kid == "" || k.Kty != "RSA" {
			continue
		}
		pubKey, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue // Skip malformed keys.
		}
		keys[k.Kid] = pubKey
	}
	return keys, nil
}

// parseRSAPublicKey rebuilds an *rsa.PublicKey from the base64url
// modulus and exponent of a JWK entry.
func parseRSAPublicKey(n64, e64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n64)
	if err != nil {
		return nil, fmt.Errorf("auth: bad RSA modulus encoding: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(e64)
	if err != nil {
		return nil, fmt.Errorf("auth: bad RSA exponent encoding: %w", err)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nb),
		E: int(new(big.Int).SetBytes(eb).Int64()),
	}, nil
}
