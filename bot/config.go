package bot

import (
	"fmt"
	"os"
)

// Mode represents the Slack bot operation mode
type Mode string

const (
	ModeSocket Mode = "socket" // Development mode using Socket Mode
	ModeHTTP   Mode = "http"   // Production mode using HTTP events
)

// Config holds all configuration for the QA assistant bot
type Config struct {
	// Bot configuration
	BotToken      string
	AppToken      string
	SigningSecret string
	Mode          Mode
	BotUserID     string

	// Assistant configuration (optional AI drafting)
	AnthropicModel string

	// Server configuration
	HTTPAddr    string
	MetricsAddr string

	// Feature flags
	Verbose bool
}

// LoadFromEnv loads configuration from environment variables and flags
func LoadFromEnv(modeFlag, httpAddrFlag, metricsAddrFlag string, verbose bool) (*Config, error) {
	cfg := &Config{
		HTTPAddr:    httpAddrFlag,
		MetricsAddr: metricsAddrFlag,
		Verbose:     verbose,
	}

	cfg.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is required")
	}

	// Determine mode
	cfg.Mode = Mode(modeFlag)
	if cfg.Mode == "" {
		// Auto-detect: socket mode if app token is set, otherwise HTTP mode
		if os.Getenv("SLACK_APP_TOKEN") != "" {
			cfg.Mode = ModeSocket
		} else {
			cfg.Mode = ModeHTTP
		}
	}

	if cfg.Mode != ModeSocket && cfg.Mode != ModeHTTP {
		return nil, fmt.Errorf("mode must be 'socket' or 'http', got: %s", cfg.Mode)
	}

	// Load mode-specific tokens
	if cfg.Mode == ModeSocket {
		cfg.AppToken = os.Getenv("SLACK_APP_TOKEN")
		if cfg.AppToken == "" {
			return nil, fmt.Errorf("SLACK_APP_TOKEN is required for socket mode")
		}
	} else {
		cfg.SigningSecret = os.Getenv("SLACK_SIGNING_SECRET")
		if cfg.SigningSecret == "" {
			return nil, fmt.Errorf("SLACK_SIGNING_SECRET is required for HTTP mode")
		}
	}

	// AI drafting is optional: enabled when a key is present
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		cfg.AnthropicModel = os.Getenv("ANTHROPIC_MODEL")
		if cfg.AnthropicModel == "" {
			cfg.AnthropicModel = "claude-3-5-haiku-latest"
		}
	}

	return cfg, nil
}
