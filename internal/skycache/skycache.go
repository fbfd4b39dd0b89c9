// Package skycache maintains a rolling in-memory window of sky
// keyframes: satellite ECEF states plus solar-system body positions at
// a fixed step over [now, now+horizon]. A background loop generates
// frames at the leading edge, evicts the trailing edge, and rebuilds
// the window when the TLE dataset changes, without interrupting
// readers.
package skycache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/metrics"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/propagation"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
)

// Config holds cache tuning loaded from environment variables.
type Config struct {
	Step        time.Duration // keyframe spacing (default: 5s)
	Horizon     time.Duration // lookahead window (default: 600s)
	GracePeriod time.Duration // cutover rebuild budget (default: 30s)
	Buffer      time.Duration // keep entries this long past now (default: 60s)
}

// Entry wraps a keyframe with generation metadata.
type Entry struct {
	Keyframe    *propagation.Keyframe
	GeneratedAt time.Time
}

// Cache is the rolling sky keyframe window. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[time.Time]*Entry

	config Config
	prop   *propagation.Propagator
	store  *tle.Store
	logger *slog.Logger

	// Tracks the dataset the window was built from, for change detection.
	currentFetchedAt time.Time

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	// Cutover state.
	inGracePeriod atomic.Bool
}

// New creates an empty sky cache; Start fills and maintains it.
func New(config Config, prop *propagation.Propagator, store *tle.Store, logger *slog.Logger) *Cache {
	logger.Info("sky cache initialized",
		"step_seconds", config.Step.Seconds(),
		"horizon_seconds", config.Horizon.Seconds(),
		"buffer_seconds", config.Buffer.Seconds(),
		"grace_period_seconds", config.GracePeriod.Seconds(),
	)

	return &Cache{
		entries: make(map[time.Time]*Entry),
		config:  config,
		prop:    prop,
		store:   store,
		logger:  logger,
	}
}

// RoundToStep rounds a timestamp down to the nearest step boundary so
// lookups hit consistently. Always converts to UTC first; SGP4 and
// GMST expect UTC components.
func (c *Cache) RoundToStep(t time.Time) time.Time {
	return t.UTC().Truncate(c.config.Step)
}

// Get returns the keyframe for the given timestamp, or nil if not
// cached. The timestamp is rounded to the step boundary.
func (c *Cache) Get(t time.Time) *propagation.Keyframe {
	key := c.RoundToStep(t)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return entry.Keyframe
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// GetLatest returns the keyframe closest to (but not after) the
// current time.
func (c *Cache) GetLatest() *propagation.Keyframe {
	now := c.RoundToStep(time.Now())

	c.mu.RLock()
	defer c.mu.RUnlock()

	// Walk backwards from now to find the most recent entry.
	for i := 0; i < 10; i++ {
		key := now.Add(-time.Duration(i) * c.config.Step)
		if entry, ok := c.entries[key]; ok {
			c.hits.Add(1)
			metrics.IncCacheHits()
			return entry.Keyframe
		}
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()
	return nil
}

// put stores a keyframe. Caller must not hold mu.
func (c *Cache) put(kf *propagation.Keyframe) {
	key := c.RoundToStep(kf.Timestamp)
	entry := &Entry{
		Keyframe:    kf,
		GeneratedAt: time.Now(),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	c.updateMetrics()
}

// evictExpired removes entries older than now - buffer.
func (c *Cache) evictExpired() int {
	cutoff := time.Now().Add(-c.config.Buffer)
	var removed int

	c.mu.Lock()
	for ts := range c.entries {
		if ts.Before(cutoff) {
			delete(c.entries, ts)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		c.updateMetrics()
		c.logger.Debug("sky cache eviction", "entries_removed", removed)
	}

	return removed
}

// replaceAll atomically replaces the window (used during TLE cutover).
func (c *Cache) replaceAll(newEntries map[time.Time]*Entry) {
	c.mu.Lock()
	c.entries = newEntries
	c.mu.Unlock()
	c.updateMetrics()
}

// Stats is a snapshot of the cache state.
type Stats struct {
	Entries         int
	SizeBytes       int64
	OldestTimestamp time.Time
	NewestTimestamp time.Time
	Hits            int64
	Misses          int64
	Evictions       int64
	InGracePeriod   bool
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	count := len(c.entries)

	var oldest, newest time.Time
	for ts := range c.entries {
		if oldest.IsZero() || ts.Before(oldest) {
			oldest = ts
		}
		if newest.IsZero() || ts.After(newest) {
			newest = ts
		}
	}
	c.mu.RUnlock()

	return Stats{
		Entries:         count,
		SizeBytes:       c.estimateSizeBytes(),
		OldestTimestamp: oldest,
		NewestTimestamp: newest,
		Hits:            c.hits.Load(),
		Misses:          c.misses.Load(),
		Evictions:       c.evictions.Load(),
		InGracePeriod:   c.inGracePeriod.Load(),
	}
}

// estimateSizeBytes returns a rough estimate of the memory footprint.
func (c *Cache) estimateSizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, entry := range c.entries {
		if entry.Keyframe == nil {
			continue
		}
		satSize := int64(len(entry.Keyframe.Satellites)) * int64(unsafe.Sizeof(propagation.SatelliteState{}))
		bodySize := int64(len(entry.Keyframe.Bodies)) * int64(unsafe.Sizeof(propagation.BodyState{}))
		// Keyframe overhead: Timestamp plus two slice headers.
		kfOverhead := int64(72)
		// Entry overhead: pointer plus GeneratedAt.
		entryOverhead := int64(32)
		total += satSize + bodySize + kfOverhead + entryOverhead
	}

	// Map overhead (rough: 8 bytes per bucket).
	total += int64(len(c.entries)) * 8

	return total
}

// updateMetrics publishes current cache size to Prometheus.
func (c *Cache) updateMetrics() {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	metrics.SetCacheEntries(count)
	metrics.SetCacheSizeBytes(c.estimateSizeBytes())
}
