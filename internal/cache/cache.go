package cache

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Tier names shared by all streaming providers.
const (
	TierStatic     = "static"     // markets, genres, audio formats
	TierCatalog    = "catalog"    // albums, tracks, artists
	TierDaily      = "daily"      // editorial content rotated daily
	TierFeatured   = "featured"   // featured playlists, new releases
	TierPopularity = "popularity" // charts, top tracks
	TierSearch     = "search"     // search results
	TierUser       = "user"       // user profile, library pages
	TierPlayback   = "playback"   // player state
)

// TierConfig maps tier names to time-to-live durations.
//
// Read-only after initialization.
type TierConfig map[string]time.Duration

// DefaultTiers returns the standard tier durations.
func DefaultTiers() TierConfig {
	return TierConfig{
		TierStatic:     7 * 24 * time.Hour,
		TierCatalog:    24 * time.Hour,
		TierDaily:      24 * time.Hour,
		TierFeatured:   4 * time.Hour,
		TierPopularity: 6 * time.Hour,
		TierSearch:     time.Hour,
		TierUser:       5 * time.Minute,
		TierPlayback:   30 * time.Second,
	}
}

// entry is an immutable cached value; a write for an existing key replaces
// the whole entry.
type entry struct {
	value     any
	expiresAt time.Time
}

// TieredCache memoizes call results keyed by call signature, with named
// expiry tiers.
//
// Reads of unrelated keys never block each other; population of a missing
// key is single-flight.
type TieredCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	tiers   TierConfig
	group   singleflight.Group
	clock   func() time.Time
}

// New creates a TieredCache with the given tier configuration.
//
// A nil config falls back to [DefaultTiers].
func New(tiers TierConfig) *TieredCache {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	return &TieredCache{
		entries: make(map[string]entry),
		tiers:   tiers,
		clock:   time.Now,
	}
}

// Key builds the canonical cache key for an operation and its arguments.
//
// Arguments are encoded sorted by name ([url.Values.Encode] sorts keys), so
// call sites that pass the same arguments in any order produce the same key.
func Key(operation string, args url.Values) string {
	if len(args) == 0 {
		return operation
	}
	return operation + "?" + args.Encode()
}

// GetOrCompute returns the cached value for key if present and unexpired,
// otherwise invokes compute exactly once per key under concurrent access and
// stores its result under the tier's TTL.
//
// Results of failed computations are not cached.
func (c *TieredCache) GetOrCompute(ctx context.Context, key, tier string, compute func(context.Context) (any, error)) (any, error) {
	ttl, ok := c.tiers[tier]
	if !ok {
		return nil, fmt.Errorf("unknown cache tier %q", tier)
	}

	if v, hit := c.lookup(key); hit {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent caller may have populated the entry between the
		// lookup above and acquiring the flight.
		if v, hit := c.lookup(key); hit {
			return v, nil
		}

		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.entries[key] = entry{value: v, expiresAt: c.clock().Add(ttl)}
		c.mu.Unlock()

		return v, nil
	})
	if err != nil {
		return nil, err
	}

	return v, nil
}

// lookup returns the stored value for key if it has not expired.
//
// Expired entries are dropped lazily.
func (c *TieredCache) lookup(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !c.clock().Before(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a replacement may have landed.
		if e2, ok := c.entries[key]; ok && !c.clock().Before(e2.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Invalidate drops all entries whose key starts with prefix.
//
// Mutating operations call this with the resource identity so the next read
// misses the cache.
func (c *TieredCache) Invalidate(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	var dropped int
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
			dropped++
		}
	}
	return dropped
}

// Clear drops every entry.
func (c *TieredCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Len reports the number of stored entries, including expired ones not yet
// dropped.
func (c *TieredCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Tiers returns the tier names and durations sorted by name.
func (c *TieredCache) Tiers() []struct {
	Name string
	TTL  time.Duration
} {
	out := make([]struct {
		Name string
		TTL  time.Duration
	}, 0, len(c.tiers))
	for name, ttl := range c.tiers {
		out = append(out, struct {
			Name string
			TTL  time.Duration
		}{name, ttl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
