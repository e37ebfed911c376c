package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/natefinch/atomic"
)

// RuleConfig is a single ticket-id extraction rule: a regular expression
// whose first capture group is the ticket id, applied to one activity field.
type RuleConfig struct {
	Pattern string `toml:"pattern"`
	Source  string `toml:"source"`
}

// IntegrationEntry is one configured external-service integration. Type
// selects the implementation; the service-specific connection fields live
// alongside the common ones.
type IntegrationEntry struct {
	Name    string       `toml:"name"`
	Enabled bool         `toml:"enabled"`
	Type    string       `toml:"type"`
	Rules   []RuleConfig `toml:"rules"`

	// Redmine connection parameters (type = "redmine").
	URL               string `toml:"url"`
	APIKey            string `toml:"api_key"`
	DefaultActivityID int64  `toml:"default_activity_id"`
}

// UploadConfig controls the optional aggregate upload to the upstream collector.
type UploadConfig struct {
	ServerURL          string `toml:"server_url"`
	UserID             string `toml:"user_id"`
	MachineName        string `toml:"machine_name"`
	Enabled            bool   `toml:"enabled"`
	AutoUpload         bool   `toml:"auto_upload"`
	IntervalMinutes    int    `toml:"auto_upload_interval_minutes"`
	MinDurationSeconds int64  `toml:"min_duration_seconds"`
}

// IntegrationsConfig is the on-disk integrations file. Entry order is
// significant: extraction consults integrations in file order.
type IntegrationsConfig struct {
	Integrations []IntegrationEntry `toml:"integrations"`
	Upload       *UploadConfig      `toml:"upload"`
}

// LoadIntegrations reads and parses the integrations file at path. A missing
// file is not an error; it yields an empty config so the application runs
// without any integrations configured.
func LoadIntegrations(path string) (*IntegrationsConfig, error) {
	var cfg IntegrationsConfig

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parse integrations config %s: %w", path, err)
	}

	if cfg.Upload != nil && cfg.Upload.IntervalMinutes <= 0 {
		cfg.Upload.IntervalMinutes = 60
	}

	return &cfg, nil
}

// WriteSampleIntegrations writes a commented starter integrations file to
// path atomically. It refuses to overwrite an existing file.
func WriteSampleIntegrations(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("integrations config already exists at %s", path)
	}

	sample := IntegrationsConfig{
		Integrations: []IntegrationEntry{
			{
				Name:    "my-redmine",
				Enabled: false,
				Type:    "redmine",
				URL:     "https://redmine.example.com",
				APIKey:  "your-api-key-here",
				Rules: []RuleConfig{
					{Pattern: `#(\d+)`, Source: "window_title"},
					{Pattern: `Issue (\d+)`, Source: "window_title"},
				},
				DefaultActivityID: 9,
			},
		},
		Upload: &UploadConfig{
			ServerURL:          "https://timepanel.example.com/api/upload",
			Enabled:            false,
			AutoUpload:         false,
			IntervalMinutes:    60,
			MinDurationSeconds: 60,
		},
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(sample); err != nil {
		return fmt.Errorf("encode sample integrations config: %w", err)
	}

	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write sample integrations config %s: %w", path, err)
	}

	return nil
}
