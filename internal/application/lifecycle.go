// Package application contains use-case orchestration services.
package application

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/kzap42/worknotes/internal/cache"
	"github.com/kzap42/worknotes/internal/domain/model"
	"github.com/kzap42/worknotes/internal/domain/port/driven"
)

// DefaultRefreshMargin is how long before nominal expiry a token is treated
// as expired and proactively refreshed. A tunable buffer, not a correctness
// requirement.
const DefaultRefreshMargin = 60 * time.Second

// TokenLifecycle owns one provider's credential record: it computes expiry,
// schedules proactive refresh, persists and clears state, and exposes an
// authorization-header accessor. One instance per provider.
//
// A single mutex guards all state. Refresh holds the mutex across the
// upstream call, which together with the single-timer invariant (re-arming
// cancels any pending timer) guarantees no two refreshes for the same
// provider are ever in flight.
type TokenLifecycle struct {
	name      string
	tokenKey  string
	configKey string
	margin    time.Duration

	store     driven.StateStore
	refresher driven.TokenRefresher
	cache     *cache.Cache
	logger    *slog.Logger

	mu            sync.Mutex
	current       *model.TokenRecord
	config        *model.ProviderConfig
	authenticated bool
	timer         *time.Timer

	now func() time.Time // injectable clock for tests
}

// LifecycleOptions parameterizes a TokenLifecycle per provider.
type LifecycleOptions struct {
	// Name is the provider name ("github", "pingcode"); it prefixes log lines
	// and the persisted token key ("<name>_token").
	Name string
	// ConfigKey is the durable-store key for the provider's client
	// registration. Distinct per provider for compatibility with previously
	// persisted records.
	ConfigKey string
	// Margin is the early-refresh buffer; zero means DefaultRefreshMargin.
	Margin time.Duration
}

// NewTokenLifecycle creates a lifecycle for one provider. refresher performs
// the provider-specific refresh-token exchange; c is the provider's response
// cache, invalidated whenever credentials change.
func NewTokenLifecycle(opts LifecycleOptions, store driven.StateStore, refresher driven.TokenRefresher, c *cache.Cache, logger *slog.Logger) *TokenLifecycle {
	margin := opts.Margin
	if margin <= 0 {
		margin = DefaultRefreshMargin
	}
	configKey := opts.ConfigKey
	if configKey == "" {
		configKey = opts.Name + "_config"
	}

	return &TokenLifecycle{
		name:      opts.Name,
		tokenKey:  opts.Name + "_token",
		configKey: configKey,
		margin:    margin,
		store:     store,
		refresher: refresher,
		cache:     c,
		logger:    logger,
		now:       time.Now,
	}
}

// SetToken stamps the payload with the current time, stores it as the active
// credential, persists it, re-arms the refresh timer, and invalidates the
// response cache; a new token may carry a different access scope. The cache
// invalidation completes before SetToken returns.
func (l *TokenLifecycle) SetToken(ctx context.Context, payload model.TokenPayload) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.setTokenLocked(ctx, payload)
}

func (l *TokenLifecycle) setTokenLocked(ctx context.Context, payload model.TokenPayload) {
	record := &model.TokenRecord{TokenPayload: payload, IssuedAt: l.now()}
	l.current = record
	l.authenticated = true

	if data, err := json.Marshal(record); err != nil {
		l.logger.Error("marshal token record", "provider", l.name, "error", err)
	} else if err := l.store.Set(ctx, l.tokenKey, data); err != nil {
		l.logger.Error("persist token record", "provider", l.name, "error", err)
	}

	l.armTimerLocked()
	l.cache.InvalidateAll()

	l.logger.Info("token set", "provider", l.name, "expires_in", payload.ExpiresIn)
}

// SetConfig stores the provider's client registration and persists it
// independently of the token record, since it outlives individual tokens.
func (l *TokenLifecycle) SetConfig(ctx context.Context, cfg model.ProviderConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.config = &cfg

	if data, err := json.Marshal(cfg); err != nil {
		l.logger.Error("marshal provider config", "provider", l.name, "error", err)
	} else if err := l.store.Set(ctx, l.configKey, data); err != nil {
		l.logger.Error("persist provider config", "provider", l.name, "error", err)
	}

	l.logger.Info("provider config set", "provider", l.name)
}

// Config returns the stored provider config, or nil when none is set.
func (l *TokenLifecycle) Config() *model.ProviderConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.config == nil {
		return nil
	}
	cfg := *l.config
	return &cfg
}

// LoadFromStorage restores persisted config and token state. A record that
// fails to parse is treated as absent. A loaded token that is still valid
// marks the lifecycle authenticated and arms the refresh timer; an expired
// one triggers a single immediate refresh attempt.
func (l *TokenLifecycle) LoadFromStorage(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if data, ok, err := l.store.Get(ctx, l.configKey); err != nil {
		l.logger.Error("load provider config", "provider", l.name, "error", err)
	} else if ok {
		var cfg model.ProviderConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			l.logger.Warn("discarding unparseable provider config", "provider", l.name, "error", err)
		} else {
			l.config = &cfg
		}
	}

	data, ok, err := l.store.Get(ctx, l.tokenKey)
	if err != nil {
		l.logger.Error("load token record", "provider", l.name, "error", err)
		return
	}
	if !ok {
		return
	}

	var record model.TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		l.logger.Warn("discarding unparseable token record", "provider", l.name, "error", err)
		return
	}

	l.current = &record
	if !l.isExpiredLocked() {
		l.authenticated = true
		l.armTimerLocked()
		l.logger.Info("token loaded from storage", "provider", l.name)
		return
	}

	l.logger.Info("stored token expired, attempting refresh", "provider", l.name)
	if err := l.refreshLocked(ctx); err != nil {
		l.logger.Warn("refresh of stored token failed", "provider", l.name, "error", err)
	}
}

// IsExpired reports whether the current token is absent or has reached its
// issuance time plus validity, less the early-refresh margin. The boundary
// instant counts as expired, so a token is never served at the exact moment
// the refresh timer fires.
func (l *TokenLifecycle) IsExpired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isExpiredLocked()
}

func (l *TokenLifecycle) isExpiredLocked() bool {
	if l.current == nil {
		return true
	}
	return !l.now().Before(l.current.ExpiresAt(l.margin))
}

// Authenticated reports whether a live credential is held.
func (l *TokenLifecycle) Authenticated() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.authenticated
}

// Refresh exchanges the current refresh token for a fresh access token.
// A single attempt: any failure (no refresh token, no stored config, or an
// upstream error) clears all credential state and forces re-authentication.
// The next scheduled firing or an expired-check on read is the retry
// mechanism; there is no backoff loop here.
func (l *TokenLifecycle) Refresh(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshLocked(ctx)
}

func (l *TokenLifecycle) refreshLocked(ctx context.Context) error {
	if l.current == nil || l.current.RefreshToken == "" || l.config == nil || !l.config.Valid() {
		l.logger.Warn("refresh impossible, signing out", "provider", l.name)
		l.clearLocked(ctx)
		return driven.ErrNoRefreshToken
	}

	previousRefreshToken := l.current.RefreshToken

	payload, err := l.refresher.RefreshToken(ctx, previousRefreshToken, *l.config)
	if err != nil {
		l.logger.Warn("token refresh failed, signing out", "provider", l.name, "error", err)
		l.clearLocked(ctx)
		return err
	}

	// Rotation policy: prefer the newest non-empty refresh token; keep the
	// previous one when the response omits it.
	if payload.RefreshToken == "" {
		payload.RefreshToken = previousRefreshToken
	}

	l.setTokenLocked(ctx, *payload)
	l.logger.Info("token refreshed", "provider", l.name)
	return nil
}

// armTimerLocked cancels any pending refresh timer and, when a token is held,
// schedules a single-shot refresh at (expires_in - margin) from now. Re-arming
// on every SetToken keeps at most one pending timer per provider.
func (l *TokenLifecycle) armTimerLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
	if l.current == nil {
		return
	}

	delay := time.Duration(l.current.ExpiresIn)*time.Second - l.margin
	if delay < 0 {
		delay = 0
	}

	l.timer = time.AfterFunc(delay, func() {
		if err := l.Refresh(context.Background()); err != nil {
			l.logger.Warn("scheduled refresh failed", "provider", l.name, "error", err)
		}
	})

	l.logger.Debug("refresh timer armed", "provider", l.name, "fires_in", delay)
}

// Clear drops the credential record, cancels the pending refresh timer,
// erases the persisted record, and invalidates the response cache. The cache
// invalidation completes before Clear returns. Safe to call repeatedly.
func (l *TokenLifecycle) Clear(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearLocked(ctx)
}

func (l *TokenLifecycle) clearLocked(ctx context.Context) {
	l.current = nil
	l.authenticated = false

	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}

	if err := l.store.Delete(ctx, l.tokenKey); err != nil {
		l.logger.Error("erase token record", "provider", l.name, "error", err)
	}

	l.cache.InvalidateAll()
	l.logger.Info("token cleared", "provider", l.name)
}

// AuthorizationHeader returns {"Authorization": "<type> <token>"} for a live
// credential, or an empty map when absent or expired. A pure read: it never
// triggers refresh; refresh is timer-driven and LoadFromStorage-driven only.
func (l *TokenLifecycle) AuthorizationHeader() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.current == nil || l.isExpiredLocked() {
		return map[string]string{}
	}

	return map[string]string{
		"Authorization": l.current.TokenType + " " + l.current.AccessToken,
	}
}

// Close cancels any pending refresh timer. Part of process shutdown; it does
// not touch persisted state.
func (l *TokenLifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
