// Package config loads application configuration from environment variables
// and the TOML integrations file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath           string
	ListenAddr       string
	PollInterval     time.Duration
	ResolveTimeout   time.Duration
	IntegrationsPath string
	ExtraBrowsers    []string
}

// Load reads configuration from environment variables and returns a validated
// Config. All variables are optional and have defaults:
// TIMEPANEL_DB_PATH (timepanel.db), TIMEPANEL_LISTEN_ADDR (127.0.0.1:8080),
// TIMEPANEL_POLL_INTERVAL (1s), TIMEPANEL_RESOLVE_TIMEOUT (250ms),
// TIMEPANEL_INTEGRATIONS_PATH (integrations.toml), and TIMEPANEL_BROWSERS,
// a comma-separated list of extra process names treated as browsers.
func Load() (*Config, error) {
	dbPath := "timepanel.db"
	if v, ok := os.LookupEnv("TIMEPANEL_DB_PATH"); ok {
		dbPath = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("TIMEPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	pollInterval := time.Second
	if v, ok := os.LookupEnv("TIMEPANEL_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TIMEPANEL_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("TIMEPANEL_POLL_INTERVAL must be positive, got %q", v)
		}
		pollInterval = parsed
	}

	resolveTimeout := 250 * time.Millisecond
	if v, ok := os.LookupEnv("TIMEPANEL_RESOLVE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("TIMEPANEL_RESOLVE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		resolveTimeout = parsed
	}

	integrationsPath := "integrations.toml"
	if v, ok := os.LookupEnv("TIMEPANEL_INTEGRATIONS_PATH"); ok {
		integrationsPath = v
	}

	var extraBrowsers []string
	if v, ok := os.LookupEnv("TIMEPANEL_BROWSERS"); ok && v != "" {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				extraBrowsers = append(extraBrowsers, name)
			}
		}
	}
	if extraBrowsers == nil {
		extraBrowsers = []string{}
	}

	return &Config{
		DBPath:           dbPath,
		ListenAddr:       listenAddr,
		PollInterval:     pollInterval,
		ResolveTimeout:   resolveTimeout,
		IntegrationsPath: integrationsPath,
		ExtraBrowsers:    extraBrowsers,
	}, nil
}
