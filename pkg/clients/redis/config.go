// Package redis is the connection layer for Azure Managed Redis. It
// wraps go-redis (github.com/redis/go-redis/v9) and adds OpenTelemetry
// spans and structured error classification to every command; pooling,
// reconnection, and retry stay inside go-redis.
//
// Managed endpoints live at <name>.<region>.redis.azure.net on port
// 10000 with TLS required, authenticating with an access key as the
// password. Larger SKUs speak the OSS cluster protocol; set
// [Config.ClusterEnabled] for those.
//
//	cfg := redis.DefaultConfig()
//	cfg.Host = "mycache.eastus.redis.azure.net"
//	cfg.Password = redis.Secret(os.Getenv("REDIS_PASSWORD"))
//	client, err := redis.NewClient(ctx, *cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
// In tests, [NewFromClient] injects a mock in place of a live
// connection.
//
// Command statements recorded on spans are truncated to keep key
// payloads out of telemetry.
package redis

import (
	"fmt"
	"net/url"
	"time"
)

// maxStatementTruncateLen caps db.statement span attributes. Anything
// past 100 runes is more payload than statement.
const maxStatementTruncateLen = 100

// Pool and timeout defaults tuned for a managed endpoint reached over
// TLS; the dial timeout allows for the TLS handshake.
const (
	DefaultHost = "localhost"

	// DefaultPort is the Azure Managed Redis port. Classic Azure Cache
	// for Redis uses 6380 instead.
	DefaultPort = 10000

	DefaultDB           = 0
	DefaultPoolSize     = 25
	DefaultMinIdleConns = 5
	DefaultMaxRetries   = 3
	DefaultDialTimeout  = 10 * time.Second
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 5 * time.Second

	// DefaultHealthTimeout bounds a health ping when the caller's
	// context has no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Secret holds the access key. String, GoString, and MarshalText all
// redact it, so a Secret can pass through loggers and encoders without
// leaking; [Secret.Value] returns the real key. This is redaction only,
// not encryption; keep the key itself in a secret manager such as Azure
// Key Vault.
type Secret string

const redacted = "[REDACTED]"

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return redacted }

// Value returns the actual key. Do not log or serialize the result.
func (s Secret) Value() string { return string(s) }

// MarshalText keeps the key out of JSON and YAML output.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Config describes the Redis connection. Either set [Config.URI], which
// overrides the structured fields, or fill Host/Port/Password
// individually. The env tags name the variables the layered loader
// reads.
type Config struct {
	// URI is a full connection string, "redis://..." or "rediss://..."
	// for TLS. When set, Host, Port, DB, Username, and Password are
	// ignored and the scheme decides TLS.
	URI string `json:"uri,omitempty" yaml:"uri" env:"REDIS_URI"`

	// Host is the endpoint hostname, typically
	// <name>.<region>.redis.azure.net.
	Host string `json:"host,omitempty" yaml:"host" env:"REDIS_HOST" envDefault:"localhost"`

	Port int `json:"port,omitempty" yaml:"port" env:"REDIS_PORT" envDefault:"10000"`

	// DB must be 0 when ClusterEnabled.
	DB int `json:"db" yaml:"db" env:"REDIS_DB"`

	// Username is the ACL user. Access-key authentication uses the
	// "default" user, which go-redis sends when this is empty.
	Username string `json:"username,omitempty" yaml:"username" env:"REDIS_USERNAME"`

	// Password is the access key.
	Password Secret `json:"-" yaml:"password" env:"REDIS_PASSWORD"`

	// TLSEnabled defaults to true; managed endpoints refuse plaintext.
	// Disable only for a local instance.
	TLSEnabled bool `json:"tls_enabled" yaml:"tls_enabled" env:"REDIS_TLS_ENABLED" envDefault:"true"`

	// ClusterEnabled routes commands through the OSS cluster protocol,
	// required for SKUs with clustering on.
	ClusterEnabled bool `json:"cluster_enabled" yaml:"cluster_enabled" env:"REDIS_CLUSTER_ENABLED"`

	PoolSize     int `json:"pool_size,omitempty" yaml:"pool_size" env:"REDIS_POOL_SIZE"`
	MinIdleConns int `json:"min_idle_conns,omitempty" yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS"`

	// MaxRetries is per command; -1 disables retries.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries" env:"REDIS_MAX_RETRIES"`

	DialTimeout  time.Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout" env:"REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout,omitempty" yaml:"read_timeout" env:"REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout,omitempty" yaml:"write_timeout" env:"REDIS_WRITE_TIMEOUT"`
}

// DefaultConfig returns the package defaults. Override Host and
// Password before handing the config to [NewClient].
func DefaultConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DB:           DefaultDB,
		TLSEnabled:   true,
		PoolSize:     DefaultPoolSize,
		MinIdleConns: DefaultMinIdleConns,
		MaxRetries:   DefaultMaxRetries,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate fills zero-valued pool and timeout fields with defaults and
// rejects invalid values, returning the first problem found. In URI
// mode only the URI scheme is checked; the structured host and port
// rules do not apply.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("redis: config URI is invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("redis: config URI scheme must be redis:// or rediss://, got %q", u.Scheme)
		}
		return nil
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("redis: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.ClusterEnabled && c.DB != 0 {
		return fmt.Errorf("redis: config db must be 0 in cluster mode, got %d", c.DB)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("redis: config pool_size must be >= 1, got %d", c.PoolSize)
	}
	if c.MinIdleConns < 0 {
		return fmt.Errorf("redis: config min_idle_conns must be >= 0, got %d", c.MinIdleConns)
	}
	if c.PoolSize < c.MinIdleConns {
		return fmt.Errorf("redis: config pool_size (%d) must be >= min_idle_conns (%d)", c.PoolSize, c.MinIdleConns)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("redis: config dial_timeout must not be negative, got %v", c.DialTimeout)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("redis: config read_timeout must not be negative, got %v", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("redis: config write_timeout must not be negative, got %v", c.WriteTimeout)
	}
	return nil
}

// Addr returns host:port for structured configuration.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = DefaultMinIdleConns
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// truncateStatement cuts a command statement to maxStatementTruncateLen
// runes, appending "...". Rune-based so a cut never produces invalid
// UTF-8.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStatementTruncateLen {
		return s
	}
	return string(runes[:maxStatementTruncateLen]) + "..."
}
