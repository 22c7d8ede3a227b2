// Package cache provides a time-boxed response cache with stale-read fallback.
//
// Entries never expire passively: freshness is decided at read time, so a
// stale entry remains available for the failure-path StaleRead until it is
// explicitly invalidated or overwritten.
package cache

import (
	"time"

	"github.com/maypok86/otter/v2"
)

// DefaultTTL is the freshness window for normal reads.
const DefaultTTL = 10 * time.Minute

// maxEntries bounds the backing store. Resource keys are few (one per logical
// resource per provider), so this is a safety limit rather than a sizing knob.
const maxEntries = 256

// Entry is a cached response: an opaque payload and the time it was fetched.
type Entry struct {
	Payload   any
	FetchedAt time.Time
}

// Cache is a TTL response cache keyed by logical resource name, with at most
// one entry per key. Payloads are replaced atomically on Put, never merged.
// Safe for concurrent use.
type Cache struct {
	entries *otter.Cache[string, Entry]
	ttl     time.Duration

	now func() time.Time // injectable clock for tests
}

// New creates a Cache with the given TTL. A non-positive ttl falls back to
// DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	// No ExpiryCalculator: entries are kept past the TTL deliberately so
	// StaleRead can serve them after an upstream failure.
	entries := otter.Must(&otter.Options[string, Entry]{
		MaximumSize: maxEntries,
	})

	return &Cache{
		entries: entries,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the payload for key and true iff an entry exists and is still
// within the TTL.
func (c *Cache) Get(key string) (any, bool) {
	entry, ok := c.entries.GetEntry(key)
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.Value.FetchedAt) >= c.ttl {
		return nil, false
	}
	return entry.Value.Payload, true
}

// Put stores or replaces the entry for key with FetchedAt set to now.
func (c *Cache) Put(key string, payload any) {
	c.entries.Set(key, Entry{Payload: payload, FetchedAt: c.now()})
}

// StaleRead returns the last known payload for key regardless of TTL.
// Used only as a fallback when a live fetch fails.
func (c *Cache) StaleRead(key string) (any, bool) {
	entry, ok := c.entries.GetEntry(key)
	if !ok {
		return nil, false
	}
	return entry.Value.Payload, true
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key string) {
	c.entries.Invalidate(key)
}

// InvalidateAll removes every entry. Called when credentials change (the new
// token may carry a different access scope) and on sign-out.
func (c *Cache) InvalidateAll() {
	c.entries.InvalidateAll()
}
