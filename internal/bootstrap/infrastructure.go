package bootstrap

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/channel"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/gateway"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/tracker"
)

func ProvideRedisClient(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func ProvideDatabase(cfg *Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func ProvideChannelOptions(cfg *Config) channel.Options {
	return channel.Options{
		PresenceTTL: cfg.PresenceTTL,
		Heartbeat:   cfg.PresenceHeartbeat,
	}
}

func ProvideRateLimiterConfig(cfg *Config) gateway.RateLimiterConfig {
	limits := gateway.DefaultRateLimiterConfig()
	limits.RequestsPerSecond = cfg.WSRatePerSecond
	limits.Burst = cfg.WSRateBurst
	return limits
}

func ProvideTrackerClient(cfg *Config) *tracker.Client {
	return tracker.NewClient(tracker.Config{
		Timeout:        cfg.TrackerTimeout,
		AllowedDomains: cfg.TrackerDomains,
	})
}

var InfrastructureModule = fx.Options(
	fx.Provide(
		ProvideRedisClient,
		ProvideDatabase,
		ProvideChannelOptions,
		ProvideRateLimiterConfig,
		ProvideTrackerClient,
	),
)
