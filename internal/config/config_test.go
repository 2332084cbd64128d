package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfig(t, `model:
  provider: anthropic
  name: claude-test
  timeout: 45s
extraction:
  mode: staged
pagination:
  batch_size: 4
enrichment:
  mode: queue
  concurrency: 3
session:
  store: redis
  ttl: 30m
images:
  max_bytes: 1048576
translate:
  provider: deepl
  deepl_base_url: http://deepl.local/v2`)

	cfg := &Config{}
	if err := cfg.LoadFromYAML(path); err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if cfg.Model.Provider != "anthropic" {
		t.Errorf("Expected provider to be 'anthropic', got '%s'", cfg.Model.Provider)
	}
	if cfg.Model.Name != "claude-test" {
		t.Errorf("Expected model name 'claude-test', got '%s'", cfg.Model.Name)
	}
	if cfg.Model.Timeout != 45*time.Second {
		t.Errorf("Expected timeout 45s, got %v", cfg.Model.Timeout)
	}
	if cfg.Extraction.Mode != "staged" {
		t.Errorf("Expected extraction mode 'staged', got '%s'", cfg.Extraction.Mode)
	}
	if cfg.Pagination.BatchSize != 4 {
		t.Errorf("Expected batch size 4, got %d", cfg.Pagination.BatchSize)
	}
	if cfg.Enrichment.Mode != "queue" || cfg.Enrichment.Concurrency != 3 {
		t.Errorf("Unexpected enrichment config: %+v", cfg.Enrichment)
	}
	if cfg.Session.Store != "redis" || cfg.Session.TTL != 30*time.Minute {
		t.Errorf("Unexpected session config: %+v", cfg.Session)
	}
	if cfg.Images.MaxBytes != 1048576 {
		t.Errorf("Expected max bytes 1048576, got %d", cfg.Images.MaxBytes)
	}
	if cfg.Translate.Provider != "deepl" || cfg.Translate.DeepLBaseURL != "http://deepl.local/v2" {
		t.Errorf("Unexpected translate config: %+v", cfg.Translate)
	}
}

func TestLoadFromYAMLPartialKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `pagination:
  batch_size: 10`)

	cfg := &Config{}
	cfg.SetDefaults()
	if err := cfg.LoadFromYAML(path); err != nil {
		t.Fatalf("Failed to load YAML config: %v", err)
	}

	if cfg.Pagination.BatchSize != 10 {
		t.Errorf("Expected batch size 10, got %d", cfg.Pagination.BatchSize)
	}
	if cfg.Model.Provider != DefaultProvider {
		t.Errorf("Expected default provider, got '%s'", cfg.Model.Provider)
	}
	if cfg.Images.MaxBytes != DefaultImageMaxBytes {
		t.Errorf("Expected default max bytes, got %d", cfg.Images.MaxBytes)
	}
}

func TestSetDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	if cfg.Model.Provider != "gemini" {
		t.Errorf("Expected provider to be 'gemini' (default), got '%s'", cfg.Model.Provider)
	}
	if cfg.Model.Name != DefaultGeminiModel {
		t.Errorf("Expected default gemini model, got '%s'", cfg.Model.Name)
	}
	if cfg.Pagination.BatchSize != 6 {
		t.Errorf("Expected batch size 6 (default), got %d", cfg.Pagination.BatchSize)
	}
	if cfg.Images.MaxBytes != 3*1024*1024 {
		t.Errorf("Expected 3MB ceiling (default), got %d", cfg.Images.MaxBytes)
	}
	if cfg.Extraction.Mode != "full" || cfg.Enrichment.Mode != "inline" || cfg.Session.Store != "memory" {
		t.Errorf("Unexpected mode defaults: %s %s %s", cfg.Extraction.Mode, cfg.Enrichment.Mode, cfg.Session.Store)
	}
	if cfg.Translate.Provider != "model" {
		t.Errorf("Expected translate provider 'model' (default), got '%s'", cfg.Translate.Provider)
	}
}

func TestSetDefaultsModelNamePerProvider(t *testing.T) {
	cfg := &Config{Model: ModelConfig{Provider: "openai"}}
	cfg.SetDefaults()
	if cfg.Model.Name != DefaultOpenAIModel {
		t.Errorf("Expected %s, got %s", DefaultOpenAIModel, cfg.Model.Name)
	}
}

func TestLoadFromYAMLFileNotFound(t *testing.T) {
	cfg := &Config{}
	if err := cfg.LoadFromYAML("non_existent_file.yaml"); err != nil {
		t.Errorf("Expected no error for non-existent file, got: %v", err)
	}
}

func TestLoadFromYAMLInvalid(t *testing.T) {
	path := writeConfig(t, `model:
  provider: openai
  invalid_yaml: [unclosed`)

	cfg := &Config{}
	if err := cfg.LoadFromYAML(path); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{GeminiKey: "key", SessionSecret: "secret"}
		c.SetDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"missing provider key", func(c *Config) { c.GeminiKey = "" }, true},
		{"key for other provider", func(c *Config) { c.Model.Provider = "openai" }, true},
		{"unknown provider", func(c *Config) { c.Model.Provider = "llama" }, true},
		{"missing session secret", func(c *Config) { c.SessionSecret = "" }, true},
		{"bad extraction mode", func(c *Config) { c.Extraction.Mode = "fast" }, true},
		{"redis store without url", func(c *Config) { c.Session.Store = "redis" }, true},
		{"redis store with url", func(c *Config) {
			c.Session.Store = "redis"
			c.RedisURL = "redis://localhost:6379"
		}, false},
		{"queue without redis store", func(c *Config) {
			c.Enrichment.Mode = "queue"
			c.RedisURL = "redis://localhost:6379"
		}, true},
		{"deepl without key", func(c *Config) { c.Translate.Provider = "deepl" }, true},
		{"deepl with key", func(c *Config) {
			c.Translate.Provider = "deepl"
			c.DeepLKey = "dk"
		}, false},
		{"unknown translate provider", func(c *Config) { c.Translate.Provider = "google" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("splitList() = %v", got)
	}
}
