package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DefaultPlotSourceURL is the address the plot view fetches its payload from
// when PLOT_SOURCE_URL is not set.
const DefaultPlotSourceURL = "http://127.0.0.1:5000/choropleth"

// Config holds all configuration for the choropleth viewer and the mapbot CLI
type Config struct {
	// Server configuration
	Port    string        `env:"PORT,default=3000"`
	ViewTTL time.Duration `env:"VIEW_TTL,default=2m"`

	// Plot source
	PlotSourceURL string        `env:"PLOT_SOURCE_URL,default=http://127.0.0.1:5000/choropleth"`
	FetchTimeout  time.Duration `env:"FETCH_TIMEOUT,default=30s"`

	// Page presentation
	PageTitle         string `env:"PAGE_TITLE,default=Choropleth Map"`
	PlaceholderText   string `env:"PLACEHOLDER_TEXT,default=Loading map..."`
	PlotlyScriptURL   string `env:"PLOTLY_SCRIPT_URL,default=https://cdn.plot.ly/plotly-2.35.2.min.js"`
	DatastarScriptURL string `env:"DATASTAR_SCRIPT_URL,default=https://cdn.jsdelivr.net/gh/starfederation/datastar@v0.21.4/bundles/datastar.js"`

	// Mapbot configuration
	MapbotURL    string `env:"MAPBOT_URL,default=http://127.0.0.1:5000/generate_map"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
	OpenAIModel  string `env:"OPENAI_MODEL,default=gpt-4.1-mini"`

	// Local testing configuration
	MockupMode bool `env:"MOCKUP_MODE,default=false"`

	// Service configuration
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=auto"`
}

// Load loads configuration from a .env file (if present) and environment variables.
// Variables already set in the environment win over the .env file.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith processes configuration from the given lookuper and validates it
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot check on its own
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"PLOT_SOURCE_URL": c.PlotSourceURL,
		"MAPBOT_URL":      c.MapbotURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid %s %q: scheme must be http or https", name, raw)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid %s %q: missing host", name, raw)
		}
	}
	if c.ViewTTL <= 0 {
		return fmt.Errorf("invalid VIEW_TTL %s: must be positive", c.ViewTTL)
	}
	if c.FetchTimeout < 0 {
		return fmt.Errorf("invalid FETCH_TIMEOUT %s: must not be negative", c.FetchTimeout)
	}
	return nil
}
