package containers

import (
	"context"
	"fmt"
	"strings"

	"github.com/testcontainers/testcontainers-go/modules/redis"
)

// RedisContainer is a disposable Redis instance. Addr is host:port, as go-redis expects.
type RedisContainer struct {
	*redis.RedisContainer
	Addr string
}

func NewRedisContainer(ctx context.Context) (*RedisContainer, error) {
	c, err := redis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return nil, fmt.Errorf("failed to start redis container: %w", err)
	}

	uri, err := c.ConnectionString(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("failed to get redis connection string: %w", err)
	}

	return &RedisContainer{
		RedisContainer: c,
		Addr:           strings.TrimPrefix(uri, "redis://"),
	}, nil
}
