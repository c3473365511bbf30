package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	amrerr "github.com/AzureManagedRedis/mcp-amr/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope for this package.
const tracerName = "github.com/AzureManagedRedis/mcp-amr/pkg/clients/redis"

// Cmdable is the slice of the go-redis API that [Client] wraps. Both
// [*redis.Client] and [*redis.ClusterClient] satisfy it, as do mocks,
// which is what makes [NewFromClient] usable in unit tests.
type Cmdable interface {
	// Strings.
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd

	// Keyspace.
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd

	// Counters.
	Incr(ctx context.Context, key string) *redis.IntCmd
	Decr(ctx context.Context, key string) *redis.IntCmd

	// Hashes.
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd

	// Lists.
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd

	// Sets.
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd

	// Streams.
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRange(ctx context.Context, stream, start, stop string) *redis.XMessageSliceCmd
	XLen(ctx context.Context, stream string) *redis.IntCmd

	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Both client variants must keep satisfying Cmdable, so cluster mode
// stays a construction-time choice invisible to callers.
var (
	_ Cmdable = (*redis.Client)(nil)
	_ Cmdable = (*redis.ClusterClient)(nil)
)

// Client wraps a [Cmdable] and adds OpenTelemetry spans plus structured
// error classification to every command. It is safe for concurrent use;
// create one per Redis endpoint and share it.
type Client struct {
	cmdable Cmdable
	config  *Config
	tracer  trace.Tracer
	dbIndex int
}

// NewClient validates cfg, builds a standalone or cluster go-redis
// client per [Config.ClusterEnabled], and verifies connectivity with a
// ping before returning. The caller owns the client and must [Client.Close]
// it.
//
// Error codes: [amrerr.CodeValidation] for bad configuration,
// [amrerr.CodeUnavailableDependency] when the server cannot be reached.
//
//	cfg := redis.DefaultConfig()
//	cfg.Host = "mycache.eastus.redis.azure.net"
//	cfg.Password = redis.Secret(os.Getenv("REDIS_PASSWORD"))
//	client, err := redis.NewClient(ctx, *cfg)
//	if err != nil {
//	    return fmt.Errorf("connecting to redis: %w", err)
//	}
//	defer client.Close()
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, amrerr.Wrap(err, amrerr.CodeValidation,
			"redis: invalid configuration")
	}

	var opts *redis.Options
	if cfg.URI != "" {
		var err error
		opts, err = redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, amrerr.Wrap(err, amrerr.CodeValidation,
				"redis: failed to parse connection URI")
		}
		// Pool settings come from the config even in URI mode.
		opts.PoolSize = cfg.PoolSize
		opts.MinIdleConns = cfg.MinIdleConns
		opts.MaxRetries = cfg.MaxRetries
		if cfg.DialTimeout > 0 {
			opts.DialTimeout = cfg.DialTimeout
		}
		if cfg.ReadTimeout > 0 {
			opts.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			opts.WriteTimeout = cfg.WriteTimeout
		}
	} else {
		opts = &redis.Options{
			Addr:         cfg.Addr(),
			Username:     cfg.Username,
			Password:     cfg.Password.Value(),
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}
		if cfg.TLSEnabled {
			// ServerName must match the managed endpoint name for
			// certificate verification.
			opts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: cfg.Host,
			}
		}
	}

	var rdb Cmdable
	if cfg.ClusterEnabled {
		rdb = redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        []string{opts.Addr},
			Username:     opts.Username,
			Password:     opts.Password,
			PoolSize:     opts.PoolSize,
			MinIdleConns: opts.MinIdleConns,
			MaxRetries:   opts.MaxRetries,
			DialTimeout:  opts.DialTimeout,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
			TLSConfig:    opts.TLSConfig,
		})
	} else {
		rdb = redis.NewClient(opts)
	}

	// Fail fast on an unreachable endpoint.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, amrerr.Wrap(err, amrerr.CodeUnavailableDependency,
			"redis: failed to connect to server")
	}

	dbIndex := cfg.DB
	if cfg.URI != "" {
		dbIndex = opts.DB
	}

	return &Client{
		cmdable: rdb,
		config:  &cfg,
		tracer:  otel.Tracer(tracerName),
		dbIndex: dbIndex,
	}, nil
}

// NewFromClient wraps an existing [Cmdable], skipping validation and the
// connectivity ping. Meant for tests with mocks; cfg may be nil.
func NewFromClient(cmdable Cmdable, cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Client{
		cmdable: cmdable,
		config:  cfg,
		tracer:  otel.Tracer(tracerName),
		dbIndex: cfg.DB,
	}
}

// Set stores a string value, with expiration 0 meaning no expiry.
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	ctx, span := c.traced(ctx, "SET", key)
	err := c.cmdable.Set(ctx, key, value, expiration).Err()
	endSpan(span, err)
	if err != nil {
		return wrapError(err, "redis: SET failed")
	}
	return nil
}

// Get returns the string value of a key. A missing key surfaces as
// [redis.Nil] through the error chain:
//
//	val, err := client.Get(ctx, "user:123")
//	if errors.Is(err, redis.Nil) {
//	    // key does not exist
//	}
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	ctx, span := c.traced(ctx, "GET", key)
	val, err := c.cmdable.Get(ctx, key).Result()
	endSpan(span, err)
	if err != nil {
		return "", wrapError(err, "redis: GET failed")
	}
	return val, nil
}

// Del removes keys and reports how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	ctx, span := c.traced(ctx, "DEL", keys)
	val, err := c.cmdable.Del(ctx, keys...).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: DEL failed")
	}
	return val, nil
}

// Exists reports how many of the given keys exist.
func (c *Client) Exists(ctx context.Context, keys ...string) (int64, error) {
	ctx, span := c.traced(ctx, "EXISTS", keys)
	val, err := c.cmdable.Exists(ctx, keys...).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: EXISTS failed")
	}
	return val, nil
}

// Expire sets a TTL on a key. The bool result is false when the key
// does not exist.
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	ctx, span := c.traced(ctx, "EXPIRE", key, expiration)
	val, err := c.cmdable.Expire(ctx, key, expiration).Result()
	endSpan(span, err)
	if err != nil {
		return false, wrapError(err, "redis: EXPIRE failed")
	}
	return val, nil
}

// TTL returns the remaining time to live of a key: -1 when the key has
// no expiry, -2 when it does not exist.
func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	ctx, span := c.traced(ctx, "TTL", key)
	val, err := c.cmdable.TTL(ctx, key).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: TTL failed")
	}
	return val, nil
}

// Incr increments a counter key and returns the new value.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	ctx, span := c.traced(ctx, "INCR", key)
	val, err := c.cmdable.Incr(ctx, key).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: INCR failed")
	}
	return val, nil
}

// Decr decrements a counter key and returns the new value.
func (c *Client) Decr(ctx context.Context, key string) (int64, error) {
	ctx, span := c.traced(ctx, "DECR", key)
	val, err := c.cmdable.Decr(ctx, key).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: DECR failed")
	}
	return val, nil
}

// HSet writes field-value pairs into a hash and returns the number of
// new fields.
func (c *Client) HSet(ctx context.Context, key string, values ...interface{}) (int64, error) {
	ctx, span := c.traced(ctx, "HSET", key)
	val, err := c.cmdable.HSet(ctx, key, values...).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: HSET failed")
	}
	return val, nil
}

// HGet returns one hash field. A missing key or field surfaces as
// [redis.Nil].
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	ctx, span := c.traced(ctx, "HGET", key, field)
	val, err := c.cmdable.HGet(ctx, key, field).Result()
	endSpan(span, err)
	if err != nil {
		return "", wrapError(err, "redis: HGET failed")
	}
	return val, nil
}

// HGetAll returns every field of a hash; an empty map when the key does
// not exist.
func (c *Client) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	ctx, span := c.traced(ctx, "HGETALL", key)
	val, err := c.cmdable.HGetAll(ctx, key).Result()
	endSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "redis: HGETALL failed")
	}
	return val, nil
}

// HDel removes hash fields and returns how many were removed.
func (c *Client) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	ctx, span := c.traced(ctx, "HDEL", key, fields)
	val, err := c.cmdable.HDel(ctx, key, fields...).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: HDEL failed")
	}
	return val, nil
}

// LPush prepends values to a list and returns the resulting length.
func (c *Client) LPush(ctx context.Context, key string, values ...interface{}) (int64, error) {
	ctx, span := c.traced(ctx, "LPUSH", key)
	val, err := c.cmdable.LPush(ctx, key, values...).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: LPUSH failed")
	}
	return val, nil
}

// RPush appends values to a list and returns the resulting length.
func (c *Client) RPush(ctx context.Context, key string, values ...interface{}) (int64, error) {
	ctx, span := c.traced(ctx, "RPUSH", key)
	val, err := c.cmdable.RPush(ctx, key, values...).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: RPUSH failed")
	}
	return val, nil
}

// LRange returns list elements by zero-based index range; 0 and -1
// select the whole list.
func (c *Client) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	ctx, span := c.traced(ctx, "LRANGE", key, start, stop)
	val, err := c.cmdable.LRange(ctx, key, start, stop).Result()
	endSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "redis: LRANGE failed")
	}
	return val, nil
}

// LLen returns the length of a list.
func (c *Client) LLen(ctx context.Context, key string) (int64, error) {
	ctx, span := c.traced(ctx, "LLEN", key)
	val, err := c.cmdable.LLen(ctx, key).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: LLEN failed")
	}
	return val, nil
}

// SAdd adds members to a set and returns the number actually added.
func (c *Client) SAdd(ctx context.Context, key string, members ...interface{}) (int64, error) {
	ctx, span := c.traced(ctx, "SADD", key)
	val, err := c.cmdable.SAdd(ctx, key, members...).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: SADD failed")
	}
	return val, nil
}

// SMembers returns all members of a set.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	ctx, span := c.traced(ctx, "SMEMBERS", key)
	val, err := c.cmdable.SMembers(ctx, key).Result()
	endSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "redis: SMEMBERS failed")
	}
	return val, nil
}

// SIsMember reports set membership.
func (c *Client) SIsMember(ctx context.Context, key string, member interface{}) (bool, error) {
	ctx, span := c.traced(ctx, "SISMEMBER", key)
	val, err := c.cmdable.SIsMember(ctx, key, member).Result()
	endSpan(span, err)
	if err != nil {
		return false, wrapError(err, "redis: SISMEMBER failed")
	}
	return val, nil
}

// SRem removes members from a set and returns how many were removed.
func (c *Client) SRem(ctx context.Context, key string, members ...interface{}) (int64, error) {
	ctx, span := c.traced(ctx, "SREM", key)
	val, err := c.cmdable.SRem(ctx, key, members...).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: SREM failed")
	}
	return val, nil
}

// XAdd appends an entry to the stream named in a.Stream and returns the
// generated entry ID.
//
//	id, err := client.XAdd(ctx, &goredis.XAddArgs{
//	    Stream: "events",
//	    Values: map[string]interface{}{"kind": "tool_call"},
//	})
func (c *Client) XAdd(ctx context.Context, a *redis.XAddArgs) (string, error) {
	ctx, span := c.traced(ctx, "XADD", a.Stream)
	val, err := c.cmdable.XAdd(ctx, a).Result()
	endSpan(span, err)
	if err != nil {
		return "", wrapError(err, "redis: XADD failed")
	}
	return val, nil
}

// XRange returns stream entries with IDs between start and stop; "-"
// and "+" select the full stream.
func (c *Client) XRange(ctx context.Context, stream, start, stop string) ([]redis.XMessage, error) {
	ctx, span := c.traced(ctx, "XRANGE", stream, start, stop)
	val, err := c.cmdable.XRange(ctx, stream, start, stop).Result()
	endSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "redis: XRANGE failed")
	}
	return val, nil
}

// XLen returns the number of entries in a stream.
func (c *Client) XLen(ctx context.Context, stream string) (int64, error) {
	ctx, span := c.traced(ctx, "XLEN", stream)
	val, err := c.cmdable.XLen(ctx, stream).Result()
	endSpan(span, err)
	if err != nil {
		return 0, wrapError(err, "redis: XLEN failed")
	}
	return val, nil
}

// Health pings the server, applying [DefaultHealthTimeout] when the
// caller's context carries no deadline. A failure comes back as
// [amrerr.CodeUnavailableDependency], which the health endpoint maps to
// 503.
func (c *Client) Health(ctx context.Context) error {
	ctx, span := c.traced(ctx, "PING")

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	err := c.cmdable.Ping(ctx).Err()
	endSpan(span, err)
	if err != nil {
		return amrerr.Wrap(err, amrerr.CodeUnavailableDependency,
			"redis: health check failed")
	}
	return nil
}

// Close releases connection resources. Safe to call more than once.
func (c *Client) Close() error {
	return c.cmdable.Close()
}

// Client exposes the underlying [Cmdable] for operations not wrapped
// here. Do not close it directly; use [Client.Close].
func (c *Client) Client() Cmdable {
	return c.cmdable
}

// traced opens a client span named after the command, carrying the
// semantic attributes from
// https://opentelemetry.io/docs/specs/semconv/database/. The recorded
// db.statement is the command followed by its arguments, truncated so
// values stay out of telemetry.
func (c *Client) traced(ctx context.Context, cmd string, args ...any) (context.Context, trace.Span) {
	stmt := cmd
	for _, a := range args {
		stmt += " " + fmt.Sprint(a)
	}
	ctx, span := c.tracer.Start(ctx, "redis."+cmd,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "redis"),
		attribute.Int("db.redis.database_index", c.dbIndex),
		attribute.String("db.statement", truncateStatement(stmt)),
	)
	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapError classifies a command error. Deadline expiry becomes the
// retryable [amrerr.CodeTimeoutDatabase]; everything else, including
// context cancellation, becomes [amrerr.CodeInternalDatabase]. Wrap
// preserves the chain, so errors.Is(err, redis.Nil) still works on the
// result.
func wrapError(err error, message string) *amrerr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return amrerr.Wrap(err, amrerr.CodeTimeoutDatabase, message)
	}
	return amrerr.Wrap(err, amrerr.CodeInternalDatabase, message)
}
