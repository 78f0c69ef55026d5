// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
	BackendGrok      = "grok"
	BackendOpenAI    = "openai"
)

// Config holds the API server configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Backend     string
	OllamaModel string // Model specification in format "model:version" (e.g., "llama3:latest")
	Debug       bool
}

// ClientConfig holds the terminal client configuration, populated from flags.
type ClientConfig struct {
	ServerURL   string
	DBPath      string
	ToolContext string
	Debug       bool
}

// Load reads server configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "3001"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./neotrace.db"),
		Backend:     getEnv("CHAT_BACKEND", BackendOllama),
		OllamaModel: getEnv("OLLAMA_MODEL", "llama3:latest"),
		Debug:       getEnvBool("DEBUG", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	switch c.Backend {
	case BackendOllama, BackendAnthropic, BackendGrok, BackendOpenAI:
	default:
		return fmt.Errorf("unknown CHAT_BACKEND: %s", c.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
