package prefs

import (
	"log/slog"

	"go.uber.org/fx"
)

func ProvideHandler(store *Store, logger *slog.Logger) *Handler {
	return NewHandler(store, logger.With("handler", "prefs"))
}

var Module = fx.Options(
	fx.Provide(ProvideHandler),
)
