package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

const (
	redisPingAttempts = 5
	redisPingTimeout  = 3 * time.Second
)

// NewRedisClient connects to Redis and pings it with exponential backoff.
// The client is closed again if Redis never answers.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	backoff := 200 * time.Millisecond

	var err error
	for attempt := 1; attempt <= redisPingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err = client.Ping(pingCtx).Err()
		cancel()

		if err == nil {
			slog.Info("connected to Redis", "address", cfg.Address, "db", cfg.DB)
			return client, nil
		}

		if attempt == redisPingAttempts {
			break
		}

		slog.Debug("redis ping failed, retrying", "attempt", attempt, "error", err)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
}
