// Package cache holds the optional Redis client used as the backing
// store for the ledger's credit replay guard.
package cache

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wellnessai/engagement-backend/internal/config"
)

// New connects a Redis client from config. Returns nil when no Redis
// host is configured or the ping fails; callers fall back to
// in-process state.
func New(cfg *config.Config) *redis.Client {
	if cfg.RedisHost == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Warn("redis unavailable, falling back to in-process replay guard", "error", err)
		_ = client.Close()
		return nil
	}

	slog.Info("redis connected", "addr", client.Options().Addr)
	return client
}
