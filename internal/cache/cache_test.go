package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock returns a cache with a controllable clock and the advance func.
func fakeClock(t *testing.T, ttl time.Duration) (*Cache, func(time.Duration)) {
	t.Helper()

	c := New(ttl)
	current := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	return c, func(d time.Duration) { current = current.Add(d) }
}

func TestCache_PutThenGet(t *testing.T) {
	c, _ := fakeClock(t, time.Minute)

	c.Put("repos", []string{"a", "b"})

	got, ok := c.Get("repos")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestCache_GetMissesAfterTTL(t *testing.T) {
	c, advance := fakeClock(t, time.Minute)

	c.Put("repos", "payload")
	advance(time.Minute)

	_, ok := c.Get("repos")
	assert.False(t, ok, "entry at exactly TTL age should be a miss")
}

func TestCache_GetHitsJustBeforeTTL(t *testing.T) {
	c, advance := fakeClock(t, time.Minute)

	c.Put("repos", "payload")
	advance(time.Minute - time.Second)

	_, ok := c.Get("repos")
	assert.True(t, ok)
}

func TestCache_StaleReadSurvivesTTL(t *testing.T) {
	c, advance := fakeClock(t, time.Minute)

	c.Put("issues", "v1")
	advance(time.Hour)

	_, ok := c.Get("issues")
	require.False(t, ok)

	stale, ok := c.StaleRead("issues")
	require.True(t, ok)
	assert.Equal(t, "v1", stale)
}

func TestCache_StaleReadMissesWhenEmpty(t *testing.T) {
	c, _ := fakeClock(t, time.Minute)

	_, ok := c.StaleRead("nothing")
	assert.False(t, ok)
}

func TestCache_PutReplacesPayload(t *testing.T) {
	c, _ := fakeClock(t, time.Minute)

	c.Put("user", "old")
	c.Put("user", "new")

	got, ok := c.Get("user")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestCache_Invalidate(t *testing.T) {
	c, _ := fakeClock(t, time.Minute)

	c.Put("repos", "payload")
	c.Invalidate("repos")

	_, ok := c.Get("repos")
	assert.False(t, ok)
	_, ok = c.StaleRead("repos")
	assert.False(t, ok, "invalidation removes the entry outright, not just freshness")
}

func TestCache_InvalidateAll(t *testing.T) {
	c, _ := fakeClock(t, time.Minute)

	c.Put("repos", 1)
	c.Put("user", 2)
	c.Put("issues", 3)
	c.InvalidateAll()

	for _, key := range []string{"repos", "user", "issues"} {
		_, ok := c.StaleRead(key)
		assert.False(t, ok, "key %q should be gone", key)
	}
}

func TestNew_DefaultTTL(t *testing.T) {
	c := New(0)
	assert.Equal(t, DefaultTTL, c.ttl)
}
