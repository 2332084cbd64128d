package translate

import (
	"log/slog"

	"github.com/menutalk/kiku/internal/config"
	"github.com/menutalk/kiku/internal/services/model"
)

// NewBackend picks the phrase backend named by cfg.Provider.
func NewBackend(cfg config.TranslateConfig, deeplKey string, gen model.Generator) Backend {
	slog.Info("Translate provider selected", "provider", cfg.Provider)

	switch cfg.Provider {
	case "deepl":
		return NewDeepLBackend(deeplKey, DeepLOptions{BaseURL: cfg.DeepLBaseURL})
	default:
		return NewModelBackend(gen)
	}
}
