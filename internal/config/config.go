// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kzap42/worknotes/internal/domain/model"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	DBPath        string
	CacheTTL      time.Duration
	RefreshMargin time.Duration
	GitHub        model.ProviderConfig
	PingCode      model.ProviderConfig
}

// Load reads configuration from environment variables and returns a validated
// Config. Provider client registrations (WORKNOTES_GITHUB_CLIENT_ID/_SECRET,
// WORKNOTES_PINGCODE_CLIENT_ID/_SECRET) are optional; if absent, the matching
// provider cannot refresh tokens until a registration arrives over the API.
// Optional variables with defaults: WORKNOTES_LISTEN_ADDR (127.0.0.1:8080),
// WORKNOTES_DB_PATH (worknotes.db), WORKNOTES_CACHE_TTL (10m),
// WORKNOTES_REFRESH_MARGIN (60s).
func Load() (*Config, error) {
	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("WORKNOTES_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "worknotes.db"
	if v, ok := os.LookupEnv("WORKNOTES_DB_PATH"); ok {
		dbPath = v
	}

	cacheTTL := 10 * time.Minute
	if v, ok := os.LookupEnv("WORKNOTES_CACHE_TTL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("WORKNOTES_CACHE_TTL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("WORKNOTES_CACHE_TTL must be positive, got %q", v)
		}
		cacheTTL = parsed
	}

	refreshMargin := 60 * time.Second
	if v, ok := os.LookupEnv("WORKNOTES_REFRESH_MARGIN"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("WORKNOTES_REFRESH_MARGIN has invalid duration %q: %w", v, err)
		}
		if parsed < 0 {
			return nil, fmt.Errorf("WORKNOTES_REFRESH_MARGIN must not be negative, got %q", v)
		}
		refreshMargin = parsed
	}

	return &Config{
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		CacheTTL:      cacheTTL,
		RefreshMargin: refreshMargin,
		GitHub: model.ProviderConfig{
			ClientID:     os.Getenv("WORKNOTES_GITHUB_CLIENT_ID"),
			ClientSecret: os.Getenv("WORKNOTES_GITHUB_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("WORKNOTES_GITHUB_REDIRECT_URI"),
		},
		PingCode: model.ProviderConfig{
			ClientID:     os.Getenv("WORKNOTES_PINGCODE_CLIENT_ID"),
			ClientSecret: os.Getenv("WORKNOTES_PINGCODE_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("WORKNOTES_PINGCODE_REDIRECT_URI"),
		},
	}, nil
}
