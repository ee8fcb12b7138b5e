package gateway

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/channel"
)

func ProvideHub(lc fx.Lifecycle, redisClient *redis.Client, opts channel.Options, limits RateLimiterConfig, logger *slog.Logger) *Hub {
	hub := NewHub(redisClient, opts, limits, logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return hub.Close()
		},
	})
	return hub
}

func ProvideHandler(hub *Hub, logger *slog.Logger) *Handler {
	return NewHandler(hub, logger.With("handler", "gateway"))
}

var Module = fx.Options(
	fx.Provide(
		ProvideHub,
		ProvideHandler,
	),
)
