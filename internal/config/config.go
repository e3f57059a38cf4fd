package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	OllamaHost   string `envconfig:"OLLAMA_HOST" default:"http://localhost:11434"`
	DefaultModel string `envconfig:"DEFAULT_MODEL" default:"llama3"`
	AutoConnect  bool   `envconfig:"AUTO_CONNECT" default:"false"`

	DetectInputLanguage bool   `envconfig:"DETECT_INPUT_LANGUAGE" default:"true"`
	CORSAllowedOrigins  string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(c.LogLevel))); err != nil {
		return fmt.Errorf("LOG_LEVEL=%q is not a valid level", c.LogLevel)
	}
	host := strings.TrimSpace(c.OllamaHost)
	if host == "" {
		return fmt.Errorf("OLLAMA_HOST is required")
	}
	parsed, err := url.Parse(host)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("OLLAMA_HOST=%q must be an absolute http(s) URL", c.OllamaHost)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("OLLAMA_HOST=%q must use http or https", c.OllamaHost)
	}
	if strings.TrimSpace(c.DefaultModel) == "" {
		return fmt.Errorf("DEFAULT_MODEL is required")
	}
	return nil
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}
