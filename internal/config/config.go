// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port               string
	AllowedOrigins     []string
	MaxRequestBodySize int64
	OpenAI             OpenAIConfig
	Session            SessionConfig
	Transcript         TranscriptConfig
}

// OpenAIConfig selects the provider credentials and models.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	Temperature float32
	TTSModel    string
	Voice       string
}

// SessionConfig controls in-memory session retention.
type SessionConfig struct {
	MaxHistory    int
	Timeout       time.Duration
	SweepInterval time.Duration // 0 disables the background sweep
}

// TranscriptConfig controls the SQLite transcript archive.
type TranscriptConfig struct {
	Enabled bool
	DBPath  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			ChatModel:   getEnv("CHAT_MODEL", "gpt-4o-mini"),
			Temperature: getEnvFloat32("CHAT_TEMPERATURE", 0.7),
			TTSModel:    getEnv("TTS_MODEL", "tts-1"),
			Voice:       getEnv("TTS_VOICE", "alloy"),
		},
		Session: SessionConfig{
			MaxHistory:    getEnvInt("SESSION_MAX_HISTORY", 30),
			Timeout:       getEnvDuration("SESSION_TIMEOUT", 120*time.Minute),
			SweepInterval: getEnvDuration("SESSION_SWEEP_INTERVAL", 0),
		},
		Transcript: TranscriptConfig{
			Enabled: getEnvBool("TRANSCRIPT_ENABLED", false),
			DBPath:  getEnv("TRANSCRIPT_DB_PATH", "./data/transcripts.db"),
		},
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
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if c.OpenAI.ChatModel == "" {
		return fmt.Errorf("CHAT_MODEL cannot be empty")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("CHAT_TEMPERATURE must be between 0 and 2")
	}
	if c.Session.MaxHistory <= 0 {
		return fmt.Errorf("SESSION_MAX_HISTORY must be > 0")
	}
	if c.Session.Timeout <= 0 {
		return fmt.Errorf("SESSION_TIMEOUT must be > 0")
	}
	if c.Session.SweepInterval < 0 {
		return fmt.Errorf("SESSION_SWEEP_INTERVAL cannot be negative")
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0")
	}
	if c.Transcript.Enabled && c.Transcript.DBPath == "" {
		return fmt.Errorf("TRANSCRIPT_DB_PATH cannot be empty when transcripts are enabled")
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

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat32(key string, fallback float32) float32 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}

// getEnvDuration accepts Go duration strings ("90m") or a bare number of minutes.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Minute
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
