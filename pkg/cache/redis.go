package cache

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/recruit-timeline-api/pkg/config"
)

const (
	clientName   = "recruit-timeline"
	dialTimeout  = 3 * time.Second
	ioTimeout    = time.Second
	startupProbe = 5 * time.Second
)

// Addr renders the host:port of the configured server.
func Addr(cfg config.RedisConfig) string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// Options maps the configuration onto client options. Short I/O timeouts keep
// a slow cache from stalling timeline reads and report intake.
func Options(cfg config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         Addr(cfg),
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   clientName,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
}

// NewRedis returns a connected client, or nil when Redis is disabled.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(Options(cfg))

	probeCtx, cancel := context.WithTimeout(ctx, startupProbe)
	defer cancel()
	if err := Ping(client)(probeCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping returns a readiness probe for client.
func Ping(client redis.UniversalClient) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		return nil
	}
}
