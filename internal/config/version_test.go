package config

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	tests := []struct {
		name           string
		envVersion     string
		linkerVersion  string
		expectContains string
	}{
		{
			name:           "version from environment variable",
			envVersion:     "1.2.3",
			expectContains: "1.2.3",
		},
		{
			name:           "environment wins over linker flag",
			envVersion:     "2.0.0-beta.1",
			linkerVersion:  "1.0.0",
			expectContains: "2.0.0-beta.1",
		},
		{
			name:           "version from linker flag",
			linkerVersion:  "1.4.0",
			expectContains: "1.4.0",
		},
		{
			name: "version from build info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_VERSION", tt.envVersion)

			saved := version
			version = tt.linkerVersion
			defer func() { version = saved }()

			got := GetVersion()
			if got == "" {
				t.Fatal("Version should not be empty")
			}
			if tt.expectContains != "" && !strings.Contains(got, tt.expectContains) {
				t.Errorf("Expected version to contain '%s', got '%s'", tt.expectContains, got)
			}
		})
	}
}
