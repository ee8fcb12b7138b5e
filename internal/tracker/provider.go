package tracker

import (
	"log/slog"

	"go.uber.org/fx"
)

func ProvideHandler(client *Client, logger *slog.Logger) *Handler {
	return NewHandler(client, logger.With("handler", "tracker"))
}

var Module = fx.Options(
	fx.Provide(ProvideHandler),
)
