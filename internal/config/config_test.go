package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every TIMEPANEL_ env var that Load() reads.
var allConfigKeys = []string{
	"TIMEPANEL_DB_PATH",
	"TIMEPANEL_LISTEN_ADDR",
	"TIMEPANEL_POLL_INTERVAL",
	"TIMEPANEL_RESOLVE_TIMEOUT",
	"TIMEPANEL_INTEGRATIONS_PATH",
	"TIMEPANEL_BROWSERS",
}

// isolateConfigEnv saves and unsets all TIMEPANEL_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev instance).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TIMEPANEL_DB_PATH", "/tmp/test.db")
	t.Setenv("TIMEPANEL_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("TIMEPANEL_POLL_INTERVAL", "2s")
	t.Setenv("TIMEPANEL_RESOLVE_TIMEOUT", "500ms")
	t.Setenv("TIMEPANEL_INTEGRATIONS_PATH", "/tmp/integrations.toml")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.ResolveTimeout)
	assert.Equal(t, "/tmp/integrations.toml", cfg.IntegrationsPath)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "timepanel.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.ResolveTimeout)
	assert.Equal(t, "integrations.toml", cfg.IntegrationsPath)
	assert.Equal(t, []string{}, cfg.ExtraBrowsers)
}

func TestLoad_InvalidPollInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TIMEPANEL_POLL_INTERVAL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMEPANEL_POLL_INTERVAL")
}

func TestLoad_NonPositivePollInterval(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TIMEPANEL_POLL_INTERVAL", "0s")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")
}

func TestLoad_InvalidResolveTimeout(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TIMEPANEL_RESOLVE_TIMEOUT", "soon")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIMEPANEL_RESOLVE_TIMEOUT")
}

func TestLoad_Browsers(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TIMEPANEL_BROWSERS", "arc.exe, zen, ")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"arc.exe", "zen"}, cfg.ExtraBrowsers)
}

func TestLoad_Browsers_Empty(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("TIMEPANEL_BROWSERS", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{}, cfg.ExtraBrowsers)
}
