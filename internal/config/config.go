package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the structured sections. They are handed down explicitly to
// the services that need them.
const (
	DefaultProvider          = "gemini"
	DefaultExtractionMode    = "full"
	DefaultBatchSize         = 6
	DefaultEnrichmentMode    = "inline"
	DefaultConcurrency       = 1
	DefaultSearchRPS         = 5.0
	DefaultSessionStore      = "memory"
	DefaultSessionTTL        = 2 * time.Hour
	DefaultBusyTimeout       = 2 * time.Minute
	DefaultImageMaxBytes     = 3 * 1024 * 1024
	DefaultMaxUploads        = 5
	DefaultModelTimeout      = 120 * time.Second
	DefaultSearchCacheTTL    = 24 * time.Hour
	DefaultDisplayLanguage   = "ja"
	DefaultTranslateProvider = "model"
	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultOpenAIModel       = "gpt-4o-mini"
	DefaultAnthropicModel    = "claude-sonnet-4-5"
	DefaultModelMaxTokens    = 8192
	DefaultAllowedOrigin     = "*"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string

	RedisURL      string
	SessionSecret string

	GeminiKey    string
	OpenAIKey    string
	AnthropicKey string

	DeepLKey string

	GoogleSearchKey      string
	GoogleSearchEngineID string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	Port           string
	AllowedOrigins []string

	Model      ModelConfig
	Extraction ExtractionConfig
	Pagination PaginationConfig
	Enrichment EnrichmentConfig
	Session    SessionConfig
	Images     ImagesConfig
	Translate  TranslateConfig
}

type ModelConfig struct {
	Provider  string        `yaml:"provider"`
	Name      string        `yaml:"name"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	// BaseURL overrides the provider endpoint (proxies, tests).
	BaseURL string `yaml:"base_url"`
}

type ExtractionConfig struct {
	// Mode is "full" (one six-field call) or "staged" (scan, then details per batch).
	Mode            string `yaml:"mode"`
	DisplayLanguage string `yaml:"display_language"`
}

type PaginationConfig struct {
	BatchSize int `yaml:"batch_size"`
}

type EnrichmentConfig struct {
	// Mode is "inline" or "queue" (asynq worker).
	Mode              string        `yaml:"mode"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
}

type SessionConfig struct {
	// Store is "memory" or "redis".
	Store       string        `yaml:"store"`
	TTL         time.Duration `yaml:"ttl"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

type TranslateConfig struct {
	// Provider is "model" (the configured LLM) or "deepl".
	Provider     string `yaml:"provider"`
	DeepLBaseURL string `yaml:"deepl_base_url"`
}

type ImagesConfig struct {
	MaxBytes   int `yaml:"max_bytes"`
	MaxUploads int `yaml:"max_uploads"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		SessionSecret:            os.Getenv("SESSION_JWT_SECRET"),
		GeminiKey:                os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:                os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:             os.Getenv("ANTHROPIC_API_KEY"),
		DeepLKey:                 os.Getenv("DEEPL_API_KEY"),
		GoogleSearchKey:          os.Getenv("GOOGLE_SEARCH_API_KEY"),
		GoogleSearchEngineID:     os.Getenv("GOOGLE_SEARCH_ENGINE_ID"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		Port:                     os.Getenv("PORT"),
		AllowedOrigins:           splitList(os.Getenv("ALLOWED_ORIGINS")),
	}

	// Load from YAML file if available
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}
	if err := cfg.LoadFromYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	// Set defaults
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "kiku"
	}
	if cfg.ServiceVersion == "" {
		cfg.ServiceVersion = "1.0.0"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{DefaultAllowedOrigin}
	}

	cfg.SetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		Model      ModelConfig      `yaml:"model"`
		Extraction ExtractionConfig `yaml:"extraction"`
		Pagination PaginationConfig `yaml:"pagination"`
		Enrichment EnrichmentConfig `yaml:"enrichment"`
		Session    SessionConfig    `yaml:"session"`
		Images     ImagesConfig     `yaml:"images"`
		Translate  TranslateConfig  `yaml:"translate"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Only non-zero values override what is already set
	m := yamlConfig.Model
	if m.Provider != "" {
		c.Model.Provider = m.Provider
	}
	if m.Name != "" {
		c.Model.Name = m.Name
	}
	if m.MaxTokens > 0 {
		c.Model.MaxTokens = m.MaxTokens
	}
	if m.Timeout > 0 {
		c.Model.Timeout = m.Timeout
	}
	if m.BaseURL != "" {
		c.Model.BaseURL = m.BaseURL
	}

	if yamlConfig.Extraction.Mode != "" {
		c.Extraction.Mode = yamlConfig.Extraction.Mode
	}
	if yamlConfig.Extraction.DisplayLanguage != "" {
		c.Extraction.DisplayLanguage = yamlConfig.Extraction.DisplayLanguage
	}

	if yamlConfig.Pagination.BatchSize > 0 {
		c.Pagination.BatchSize = yamlConfig.Pagination.BatchSize
	}

	e := yamlConfig.Enrichment
	if e.Mode != "" {
		c.Enrichment.Mode = e.Mode
	}
	if e.Concurrency > 0 {
		c.Enrichment.Concurrency = e.Concurrency
	}
	if e.RequestsPerSecond > 0 {
		c.Enrichment.RequestsPerSecond = e.RequestsPerSecond
	}
	if e.CacheTTL > 0 {
		c.Enrichment.CacheTTL = e.CacheTTL
	}

	s := yamlConfig.Session
	if s.Store != "" {
		c.Session.Store = s.Store
	}
	if s.TTL > 0 {
		c.Session.TTL = s.TTL
	}
	if s.BusyTimeout > 0 {
		c.Session.BusyTimeout = s.BusyTimeout
	}

	if yamlConfig.Images.MaxBytes > 0 {
		c.Images.MaxBytes = yamlConfig.Images.MaxBytes
	}
	if yamlConfig.Images.MaxUploads > 0 {
		c.Images.MaxUploads = yamlConfig.Images.MaxUploads
	}

	if yamlConfig.Translate.Provider != "" {
		c.Translate.Provider = yamlConfig.Translate.Provider
	}
	if yamlConfig.Translate.DeepLBaseURL != "" {
		c.Translate.DeepLBaseURL = yamlConfig.Translate.DeepLBaseURL
	}

	return nil
}

// SetDefaults fills every structured setting that is still zero.
func (c *Config) SetDefaults() {
	if c.Model.Provider == "" {
		c.Model.Provider = DefaultProvider
	}
	if c.Model.Name == "" {
		switch c.Model.Provider {
		case "openai":
			c.Model.Name = DefaultOpenAIModel
		case "anthropic":
			c.Model.Name = DefaultAnthropicModel
		default:
			c.Model.Name = DefaultGeminiModel
		}
	}
	if c.Model.MaxTokens == 0 {
		c.Model.MaxTokens = DefaultModelMaxTokens
	}
	if c.Model.Timeout == 0 {
		c.Model.Timeout = DefaultModelTimeout
	}

	if c.Extraction.Mode == "" {
		c.Extraction.Mode = DefaultExtractionMode
	}
	if c.Extraction.DisplayLanguage == "" {
		c.Extraction.DisplayLanguage = DefaultDisplayLanguage
	}

	if c.Pagination.BatchSize == 0 {
		c.Pagination.BatchSize = DefaultBatchSize
	}

	if c.Enrichment.Mode == "" {
		c.Enrichment.Mode = DefaultEnrichmentMode
	}
	if c.Enrichment.Concurrency == 0 {
		c.Enrichment.Concurrency = DefaultConcurrency
	}
	if c.Enrichment.RequestsPerSecond == 0 {
		c.Enrichment.RequestsPerSecond = DefaultSearchRPS
	}
	if c.Enrichment.CacheTTL == 0 {
		c.Enrichment.CacheTTL = DefaultSearchCacheTTL
	}

	if c.Session.Store == "" {
		c.Session.Store = DefaultSessionStore
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = DefaultSessionTTL
	}
	if c.Session.BusyTimeout == 0 {
		c.Session.BusyTimeout = DefaultBusyTimeout
	}

	if c.Images.MaxBytes == 0 {
		c.Images.MaxBytes = DefaultImageMaxBytes
	}
	if c.Images.MaxUploads == 0 {
		c.Images.MaxUploads = DefaultMaxUploads
	}

	if c.Translate.Provider == "" {
		c.Translate.Provider = DefaultTranslateProvider
	}
}

// ProviderKey returns the API key for the selected model provider.
func (c *Config) ProviderKey() string {
	switch c.Model.Provider {
	case "openai":
		return c.OpenAIKey
	case "anthropic":
		return c.AnthropicKey
	default:
		return c.GeminiKey
	}
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Session.Store == "redis" || c.Enrichment.Mode == "queue"
}

func (c *Config) validate() error {
	switch c.Model.Provider {
	case "gemini", "openai", "anthropic":
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.ProviderKey() == "" {
		return fmt.Errorf("API key for model provider %q is required", c.Model.Provider)
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_JWT_SECRET is required")
	}
	switch c.Extraction.Mode {
	case "full", "staged":
	default:
		return fmt.Errorf("extraction.mode must be full or staged, got %q", c.Extraction.Mode)
	}
	switch c.Enrichment.Mode {
	case "inline", "queue":
	default:
		return fmt.Errorf("enrichment.mode must be inline or queue, got %q", c.Enrichment.Mode)
	}
	switch c.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("session.store must be memory or redis, got %q", c.Session.Store)
	}
	if c.NeedsRedis() && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Enrichment.Mode == "queue" && c.Session.Store != "redis" {
		return fmt.Errorf("enrichment.mode queue requires session.store redis")
	}
	switch c.Translate.Provider {
	case "model":
	case "deepl":
		if c.DeepLKey == "" {
			return fmt.Errorf("DEEPL_API_KEY is required for translate.provider deepl")
		}
	default:
		return fmt.Errorf("translate.provider must be model or deepl, got %q", c.Translate.Provider)
	}
	if c.Pagination.BatchSize < 1 {
		return fmt.Errorf("pagination.batch_size must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
