package model

import (
	"log/slog"

	"github.com/menutalk/kiku/internal/config"
)

// NewGenerator creates the configured generator. There is no fallback
// provider: a failed call is reported, never re-sent elsewhere.
func NewGenerator(cfg config.ModelConfig, apiKey string) Generator {
	opts := Options{
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}

	slog.Info("Model provider selected", "provider", cfg.Provider, "model", cfg.Name)

	switch ProviderType(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIGenerator(apiKey, cfg.Name, opts)
	case ProviderAnthropic:
		return NewAnthropicGenerator(apiKey, cfg.Name, opts)
	default:
		// Default to gemini
		return NewGeminiGenerator(apiKey, cfg.Name, opts)
	}
}
