package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// allConfigKeys lists every WORKNOTES_ env var that Load() reads.
var allConfigKeys = []string{
	"WORKNOTES_LISTEN_ADDR",
	"WORKNOTES_DB_PATH",
	"WORKNOTES_CACHE_TTL",
	"WORKNOTES_REFRESH_MARGIN",
	"WORKNOTES_GITHUB_CLIENT_ID",
	"WORKNOTES_GITHUB_CLIENT_SECRET",
	"WORKNOTES_GITHUB_REDIRECT_URI",
	"WORKNOTES_PINGCODE_CLIENT_ID",
	"WORKNOTES_PINGCODE_CLIENT_SECRET",
	"WORKNOTES_PINGCODE_REDIRECT_URI",
}

// isolateConfigEnv saves and unsets all WORKNOTES_ env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
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
	t.Setenv("WORKNOTES_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("WORKNOTES_DB_PATH", "/tmp/test.db")
	t.Setenv("WORKNOTES_CACHE_TTL", "5m")
	t.Setenv("WORKNOTES_REFRESH_MARGIN", "30s")
	t.Setenv("WORKNOTES_GITHUB_CLIENT_ID", "gh-id")
	t.Setenv("WORKNOTES_GITHUB_CLIENT_SECRET", "gh-secret")
	t.Setenv("WORKNOTES_PINGCODE_CLIENT_ID", "pc-id")
	t.Setenv("WORKNOTES_PINGCODE_CLIENT_SECRET", "pc-secret")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.RefreshMargin)
	assert.Equal(t, "gh-id", cfg.GitHub.ClientID)
	assert.True(t, cfg.GitHub.Valid())
	assert.Equal(t, "pc-id", cfg.PingCode.ClientID)
	assert.True(t, cfg.PingCode.Valid())
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.ListenAddr)
	assert.Equal(t, "worknotes.db", cfg.DBPath)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 60*time.Second, cfg.RefreshMargin)
}

// Missing provider registrations are not an error: the app starts and the
// registration can arrive over the API later.
func TestLoad_MissingProviderCredentials(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.GitHub.Valid())
	assert.False(t, cfg.PingCode.Valid())
}

func TestLoad_InvalidCacheTTL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("WORKNOTES_CACHE_TTL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKNOTES_CACHE_TTL")
}

func TestLoad_NonPositiveCacheTTL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("WORKNOTES_CACHE_TTL", "-1m")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKNOTES_CACHE_TTL")
}

func TestLoad_InvalidRefreshMargin(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("WORKNOTES_REFRESH_MARGIN", "soon")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKNOTES_REFRESH_MARGIN")
}

func TestLoad_NegativeRefreshMargin(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("WORKNOTES_REFRESH_MARGIN", "-5s")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKNOTES_REFRESH_MARGIN")
}
