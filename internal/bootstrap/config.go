package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServerAddr string
	GRPCAddr   string
	LogLevel   string

	DatabaseDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PresenceTTL       time.Duration
	PresenceHeartbeat time.Duration

	WSRatePerSecond float64
	WSRateBurst     int

	TrackerTimeout time.Duration
	TrackerDomains []string

	CORSOrigins []string

	StaticDir string
	IndexHTML string
}

func LoadConfig() *Config {
	return &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		GRPCAddr:   getEnv("GRPC_ADDR", ":50051"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		DatabaseDSN: getEnv("DATABASE_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		PresenceTTL:       getEnvDuration("PRESENCE_TTL", 45*time.Second),
		PresenceHeartbeat: getEnvDuration("PRESENCE_HEARTBEAT", 15*time.Second),

		WSRatePerSecond: float64(getEnvInt("WS_RATE_PER_SECOND", 20)),
		WSRateBurst:     getEnvInt("WS_RATE_BURST", 40),

		TrackerTimeout: getEnvDuration("TRACKER_TIMEOUT", 15*time.Second),
		TrackerDomains: parseList(getEnv("TRACKER_ALLOWED_DOMAINS", "atlassian.net")),

		CORSOrigins: parseList(getEnv("CORS_ORIGINS", "*")),

		StaticDir: getEnv("STATIC_DIR", "./static"),
		IndexHTML: getEnv("INDEX_HTML", "./static/index.html"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func parseList(envValue string) []string {
	var out []string
	for _, item := range strings.Split(envValue, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
