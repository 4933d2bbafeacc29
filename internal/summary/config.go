package summary

import (
	"fmt"
)

// Config holds the configuration for the generative language client.
//
// Environment Variables (resolved by internal/config):
// - GEMINI_API_KEY: API key for the provider (required)
// - GEMINI_API_URL: API endpoint base URL (default: https://generativelanguage.googleapis.com/v1beta)
// - GEMINI_MODEL: Model name to use (default: gemini-2.5-flash)
// - GEMINI_TIMEOUT: Request timeout in seconds (default: 60)
type Config struct {
	APIKey  string `json:"api_key"`
	APIURL  string `json:"api_url"`
	Model   string `json:"model"`
	Timeout int    `json:"timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Timeout < 1 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}
