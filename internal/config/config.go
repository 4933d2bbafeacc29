package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Config holds all application configuration.
// Read once from environment variables at startup and treated as
// immutable afterwards.
//
// Environment Variables:
// Catalog Configuration:
// - YOUTUBE_API_KEY: API key for the YouTube Data API (required)
//
// Summarizer Configuration:
// - GEMINI_API_KEY: API key for the generative language API (required)
// - GEMINI_API_URL: API endpoint base URL (default: https://generativelanguage.googleapis.com/v1beta)
// - GEMINI_MODEL: Model name to use (default: gemini-2.5-flash)
// - GEMINI_TIMEOUT: Request timeout in seconds (default: 60)
//
// Proxy Configuration (no proxy when username/password are unset):
// - PROXY_USERNAME: Forward proxy username
// - PROXY_PASSWORD: Forward proxy password
// - PROXY_HOST: Forward proxy host (default: gate.decodo.com)
// - PROXY_PORT: Forward proxy port (default: 8080)
//
// Transcript Configuration:
// - TRANSCRIPT_LANGUAGES: Comma-separated language preference list (default: en,es,hi)
// - TRANSCRIPT_MAX_ATTEMPTS: Retry bound per strategy (default: 3)
// - TRANSCRIPT_TIMEOUT: Overall deadline in seconds for one retrieval (default: 45)
// - HTTP_TIMEOUT: Per-call timeout in seconds for upstream requests (default: 20)
//
// Cache Configuration:
// - CACHE_DB_PATH: SQLite database path (default: data/tubenotes.db)
// - CACHE_TTL_HOURS: Transcript cache TTL in hours (default: 24)
// - CACHE_SWEEP_CRON: Cron expression for expired-row sweeps (default: 0 * * * *)
//
// Server Configuration:
// - SERVER_ADDR: Listen address (default: :8080)
// - STATIC_DIR: Directory with the static frontend (default: static)
// - LOG_LEVEL: debug/info/warn/error (default: info)
// - LOG_FILE: Optional log file path; stdout when empty

type Config struct {
	Catalog    CatalogConfig    `json:"catalog"`
	Summarizer SummarizerConfig `json:"summarizer"`
	Proxy      ProxyConfig      `json:"proxy"`
	Transcript TranscriptConfig `json:"transcript"`
	Cache      CacheConfig      `json:"cache"`
	Server     ServerConfig     `json:"server"`
}

// CatalogConfig holds the configuration for the video catalog API client.
type CatalogConfig struct {
	APIKey string `json:"api_key"`
}

// SummarizerConfig holds the configuration for the generative language client.
type SummarizerConfig struct {
	APIKey  string `json:"api_key"`
	APIURL  string `json:"api_url"`
	Model   string `json:"model"`
	Timeout int    `json:"timeout"`
}

// ProxyConfig holds the forward proxy credentials. An empty username or
// password means "no proxy", which is a valid configuration.
type ProxyConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     string `json:"port"`
}

// TranscriptConfig holds retrieval tuning for the transcript orchestrator.
type TranscriptConfig struct {
	Languages   []language.Tag `json:"languages"`
	MaxAttempts int            `json:"max_attempts"`
	Timeout     int            `json:"timeout"`
	HTTPTimeout int            `json:"http_timeout"`
}

// CacheConfig holds the transcript cache settings.
type CacheConfig struct {
	DBPath    string `json:"db_path"`
	TTLHours  int    `json:"ttl_hours"`
	SweepCron string `json:"sweep_cron"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir"`
	LogLevel  string `json:"log_level"`
	LogFile   string `json:"log_file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	languages, err := parseLanguages(getEnvString("TRANSCRIPT_LANGUAGES", "en,es,hi"))
	if err != nil {
		return nil, err
	}

	config := &Config{
		Catalog: CatalogConfig{
			APIKey: getEnvString("YOUTUBE_API_KEY", ""),
		},
		Summarizer: SummarizerConfig{
			APIKey:  getEnvString("GEMINI_API_KEY", ""),
			APIURL:  getEnvString("GEMINI_API_URL", "https://generativelanguage.googleapis.com/v1beta"),
			Model:   getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout: getEnvInt("GEMINI_TIMEOUT", 60),
		},
		Proxy: ProxyConfig{
			Username: getEnvString("PROXY_USERNAME", ""),
			Password: getEnvString("PROXY_PASSWORD", ""),
			Host:     getEnvString("PROXY_HOST", "gate.decodo.com"),
			Port:     getEnvString("PROXY_PORT", "8080"),
		},
		Transcript: TranscriptConfig{
			Languages:   languages,
			MaxAttempts: getEnvInt("TRANSCRIPT_MAX_ATTEMPTS", 3),
			Timeout:     getEnvInt("TRANSCRIPT_TIMEOUT", 45),
			HTTPTimeout: getEnvInt("HTTP_TIMEOUT", 20),
		},
		Cache: CacheConfig{
			DBPath:    getEnvString("CACHE_DB_PATH", "data/tubenotes.db"),
			TTLHours:  getEnvInt("CACHE_TTL_HOURS", 24),
			SweepCron: getEnvString("CACHE_SWEEP_CRON", "0 * * * *"),
		},
		Server: ServerConfig{
			Addr:      getEnvString("SERVER_ADDR", ":8080"),
			StaticDir: getEnvString("STATIC_DIR", "static"),
			LogLevel:  getEnvString("LOG_LEVEL", "info"),
			LogFile:   getEnvString("LOG_FILE", ""),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	// Validate required configuration
	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.Catalog.APIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY is required")
	}
	if c.Summarizer.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if len(c.Transcript.Languages) == 0 {
		return fmt.Errorf("TRANSCRIPT_LANGUAGES must contain at least one language")
	}
	if c.Transcript.MaxAttempts < 1 {
		return fmt.Errorf("TRANSCRIPT_MAX_ATTEMPTS must be greater than 0")
	}
	return nil
}

// parseLanguages parses a comma-separated language list into tags.
func parseLanguages(value string) ([]language.Tag, error) {
	parts := strings.Split(value, ",")
	tags := make([]language.Tag, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tag, err := language.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q in TRANSCRIPT_LANGUAGES: %w", part, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
