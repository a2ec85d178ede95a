package config

import (
	"os"
	"runtime/debug"
	"strings"
)

// version is set at build time with -ldflags "-X choropleth/internal/config.version=..."
var version string

// fallbackVersion is reported when nothing else identifies the build
const fallbackVersion = "0.1.0"

// GetVersion returns version from environment variable, linker flag or build info
func GetVersion() string {
	// First try to get version from environment variable (set by CI/CD)
	if envVersion := strings.TrimSpace(os.Getenv("APP_VERSION")); envVersion != "" {
		return envVersion
	}

	if version != "" {
		return version
	}

	return buildInfoVersion()
}

// buildInfoVersion reads the main module version embedded by the go tool
func buildInfoVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return fallbackVersion
	}

	if v := info.Main.Version; v != "" && v != "(devel)" {
		return strings.TrimPrefix(v, "v")
	}

	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return fallbackVersion + "+" + setting.Value[:7]
		}
	}

	return fallbackVersion
}
