//go:build integration

// Package containers starts throwaway Redis servers for integration
// tests via testcontainers-go. The integration build tag keeps Docker
// dependencies out of unit test builds; callers must carry the same
// tag.
package containers

import (
	"context"
	"fmt"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// DefaultRedisImage is the image [StartRedis] runs. The alpine variant
// starts fast enough to boot one per suite.
const DefaultRedisImage = "docker.io/redis:7-alpine"

// RedisResult is a running Redis container plus its connection string
// in URI form ("redis://localhost:55679/0"). Terminate the container
// when finished:
//
//	defer result.Container.Terminate(ctx)
type RedisResult struct {
	Container  *tcredis.RedisContainer
	ConnString string
}

// StartRedis runs a Redis 7 container with no authentication and waits
// for it to accept connections. On any failure after the container is
// up, it is terminated before the error returns.
func StartRedis(ctx context.Context) (*RedisResult, error) {
	container, err := tcredis.Run(ctx, DefaultRedisImage)
	if err != nil {
		return nil, fmt.Errorf("containers: start redis: %w", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("containers: redis connection string: %w", err)
	}

	return &RedisResult{Container: container, ConnString: connStr}, nil
}
