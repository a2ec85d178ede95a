package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError string
		validate    func(*testing.T, *Config)
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Port != "3000" {
					t.Errorf("Expected default Port to be '3000', got '%s'", cfg.Port)
				}
				if cfg.PlotSourceURL != DefaultPlotSourceURL {
					t.Errorf("Expected default PlotSourceURL to be '%s', got '%s'", DefaultPlotSourceURL, cfg.PlotSourceURL)
				}
				if cfg.FetchTimeout != 30*time.Second {
					t.Errorf("Expected default FetchTimeout to be 30s, got %s", cfg.FetchTimeout)
				}
				if cfg.ViewTTL != 2*time.Minute {
					t.Errorf("Expected default ViewTTL to be 2m, got %s", cfg.ViewTTL)
				}
				if cfg.PageTitle != "Choropleth Map" {
					t.Errorf("Expected default PageTitle to be 'Choropleth Map', got '%s'", cfg.PageTitle)
				}
				if cfg.PlaceholderText != "Loading map..." {
					t.Errorf("Expected default PlaceholderText to be 'Loading map...', got '%s'", cfg.PlaceholderText)
				}
				if cfg.MapbotURL != "http://127.0.0.1:5000/generate_map" {
					t.Errorf("Expected default MapbotURL, got '%s'", cfg.MapbotURL)
				}
				if cfg.OpenAIAPIKey != "" {
					t.Errorf("Expected OpenAIAPIKey to be empty, got '%s'", cfg.OpenAIAPIKey)
				}
				if cfg.MockupMode {
					t.Errorf("Expected default MockupMode to be false")
				}
				if cfg.LogLevel != "info" {
					t.Errorf("Expected default LogLevel to be 'info', got '%s'", cfg.LogLevel)
				}
				if cfg.LogFormat != "auto" {
					t.Errorf("Expected default LogFormat to be 'auto', got '%s'", cfg.LogFormat)
				}
			},
		},
		{
			name: "custom configuration values",
			envVars: map[string]string{
				"PORT":             "9000",
				"PLOT_SOURCE_URL":  "https://maps.example.com/api/choropleth",
				"FETCH_TIMEOUT":    "5s",
				"VIEW_TTL":         "10m",
				"PAGE_TITLE":       "GDP Map",
				"PLACEHOLDER_TEXT": "Please wait",
				"MOCKUP_MODE":      "true",
				"OPENAI_API_KEY":   "custom-key",
				"LOG_LEVEL":        "debug",
				"LOG_FORMAT":       "json",
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Port != "9000" {
					t.Errorf("Expected Port to be '9000', got '%s'", cfg.Port)
				}
				if cfg.PlotSourceURL != "https://maps.example.com/api/choropleth" {
					t.Errorf("Expected custom PlotSourceURL, got '%s'", cfg.PlotSourceURL)
				}
				if cfg.FetchTimeout != 5*time.Second {
					t.Errorf("Expected FetchTimeout to be 5s, got %s", cfg.FetchTimeout)
				}
				if cfg.ViewTTL != 10*time.Minute {
					t.Errorf("Expected ViewTTL to be 10m, got %s", cfg.ViewTTL)
				}
				if cfg.PageTitle != "GDP Map" {
					t.Errorf("Expected PageTitle to be 'GDP Map', got '%s'", cfg.PageTitle)
				}
				if cfg.PlaceholderText != "Please wait" {
					t.Errorf("Expected PlaceholderText to be 'Please wait', got '%s'", cfg.PlaceholderText)
				}
				if !cfg.MockupMode {
					t.Errorf("Expected MockupMode to be true")
				}
				if cfg.OpenAIAPIKey != "custom-key" {
					t.Errorf("Expected OpenAIAPIKey to be 'custom-key', got '%s'", cfg.OpenAIAPIKey)
				}
				if cfg.LogLevel != "debug" {
					t.Errorf("Expected LogLevel to be 'debug', got '%s'", cfg.LogLevel)
				}
				if cfg.LogFormat != "json" {
					t.Errorf("Expected LogFormat to be 'json', got '%s'", cfg.LogFormat)
				}
			},
		},
		{
			name:        "plot source without scheme",
			envVars:     map[string]string{"PLOT_SOURCE_URL": "127.0.0.1:5000/choropleth"},
			expectError: "PLOT_SOURCE_URL",
		},
		{
			name:        "mapbot url with unsupported scheme",
			envVars:     map[string]string{"MAPBOT_URL": "ftp://127.0.0.1/generate_map"},
			expectError: "scheme must be http or https",
		},
		{
			name:        "zero view ttl",
			envVars:     map[string]string{"VIEW_TTL": "0s"},
			expectError: "VIEW_TTL",
		},
		{
			name:        "unparsable duration",
			envVars:     map[string]string{"FETCH_TIMEOUT": "soon"},
			expectError: "failed to process config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(tt.envVars))

			if tt.expectError != "" {
				if err == nil {
					t.Fatalf("Expected error containing %q but got none", tt.expectError)
				}
				if !strings.Contains(err.Error(), tt.expectError) {
					t.Errorf("Expected error containing %q, got: %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error but got: %v", err)
			}
			tt.validate(t, cfg)
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PLOT_SOURCE_URL", "http://upstream.internal:8080/choropleth")
	t.Setenv("PORT", "8123")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.PlotSourceURL != "http://upstream.internal:8080/choropleth" {
		t.Errorf("Expected PlotSourceURL from environment, got '%s'", cfg.PlotSourceURL)
	}
	if cfg.Port != "8123" {
		t.Errorf("Expected Port '8123', got '%s'", cfg.Port)
	}
}
