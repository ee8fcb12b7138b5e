package bootstrap

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/karelhala/poker-planning-hackathon-2025/internal/prefs"
)

func ProvidePrefsStore(db *gorm.DB) *prefs.Store {
	return prefs.NewStore(db)
}

func RunMigrations(prefsStore *prefs.Store) error {
	return prefsStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(ProvidePrefsStore),
	fx.Invoke(RunMigrations),
)
