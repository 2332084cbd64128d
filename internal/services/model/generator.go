// Package model sends one prompt plus optional images to a vision-capable
// LLM and returns its raw text. Exactly one request is made per call; a
// failure of any kind surfaces as an UPSTREAM_UNAVAILABLE AppError.
package model

import (
	"context"
	"net/http"
	"time"
)

// ProviderType represents the type of AI provider
type ProviderType string

const (
	ProviderGemini    ProviderType = "gemini"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
)

// Attachment is one image sent alongside the prompt.
type Attachment struct {
	Data     []byte
	MIMEType string
}

// Generator defines the interface for multimodal text generation providers
type Generator interface {
	Generate(ctx context.Context, prompt string, attachments []Attachment) (string, error)
}

// Options tunes a provider client. Zero values mean provider defaults.
type Options struct {
	BaseURL    string
	MaxTokens  int
	Timeout    time.Duration
	HTTPClient *http.Client
}

const defaultMaxTokens = 8192

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return defaultMaxTokens
}

func (o Options) baseURL(def string) string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return def
}

const defaultTimeout = 120 * time.Second

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultTimeout
}
