package cache

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/weijianfa/ApolloOracle/internal/config"
)

// Module wires the optional Redis dedup fast path.
var Module = fx.Options(
	fx.Provide(newRedisClient, newEventCache),
	fx.Invoke(registerLifecycle),
)

func newRedisClient(cfg *config.Config) *redis.Client {
	if cfg.RedisAddress == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
}

func newEventCache(rdb *redis.Client, cfg *config.Config, logger *slog.Logger) *EventCache {
	return NewEventCache(rdb, cfg.DedupCacheTTL, logger)
}

func registerLifecycle(lc fx.Lifecycle, rdb *redis.Client) {
	if rdb == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return rdb.Close()
		},
	})
}
