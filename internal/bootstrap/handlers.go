package bootstrap

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"

	"github.com/karelhala/poker-planning-hackathon-2025/docs"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/gateway"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/prefs"
	"github.com/karelhala/poker-planning-hackathon-2025/internal/tracker"
)

type HandlerParams struct {
	fx.In

	GatewayHandler *gateway.Handler
	TrackerHandler *tracker.Handler
	PrefsHandler   *prefs.Handler
	Limits         gateway.RateLimiterConfig
	Config         *Config
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	params.GatewayHandler.RegisterRoutes(api)

	rest := api.Group("")
	rest.Use(gateway.RateLimiter(params.Limits))
	params.TrackerHandler.RegisterRoutes(rest)
	params.PrefsHandler.RegisterRoutes(rest)

	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
	e.GET("/asyncapi.yaml", func(c echo.Context) error {
		return c.Blob(http.StatusOK, "application/yaml", docs.AsyncAPISpec)
	})

	e.Static("/assets", params.Config.StaticDir)
	e.GET("/*", func(c echo.Context) error {
		return c.File(params.Config.IndexHTML)
	})
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

var HandlersModule = fx.Options(
	fx.Provide(ProvideLogger),
	tracker.Module,
	prefs.Module,
	fx.Invoke(RegisterRoutes),
)
