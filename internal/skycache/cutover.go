package skycache

import (
	"context"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/metrics"
)

// tleChanged reports whether the TLE dataset has been updated since the
// window was last built.
func (c *Cache) tleChanged() bool {
	ds := c.store.Get()
	if ds == nil {
		return false
	}
	return !ds.FetchedAt.Equal(c.currentFetchedAt)
}

// performCutover rebuilds the window against the new TLE dataset.
//
// Strategy:
//  1. Set the grace flag; the old window keeps serving reads.
//  2. Build a new entries map in the background, bounded by the
//     configured grace budget.
//  3. Atomic swap.
//
// If the rebuild overruns the budget, the partial window is swapped in
// and the leading-edge loop fills the rest. A context cancellation
// aborts without swapping.
func (c *Cache) performCutover(ctx context.Context) {
	ds := c.store.Get()
	if ds == nil {
		return
	}

	c.logger.Info("TLE cutover starting",
		"old_dataset_fetched_at", c.currentFetchedAt.UTC().Format(time.RFC3339),
		"new_dataset_fetched_at", ds.FetchedAt.UTC().Format(time.RFC3339),
	)

	c.inGracePeriod.Store(true)
	metrics.SetCacheGracePeriodActive(true)
	defer func() {
		c.inGracePeriod.Store(false)
		metrics.SetCacheGracePeriodActive(false)
	}()

	start := time.Now()
	deadline := start.Add(c.config.GracePeriod)
	now := c.RoundToStep(time.Now())
	numFrames := int(c.config.Horizon/c.config.Step) + 1

	newEntries := make(map[time.Time]*Entry, numFrames)
	generated := 0

	for i := 0; i < numFrames; i++ {
		select {
		case <-ctx.Done():
			c.logger.Warn("cutover cancelled by context")
			return
		default:
		}
		if time.Now().After(deadline) {
			c.logger.Warn("cutover grace budget exceeded, swapping partial window",
				"generated", generated,
				"wanted", numFrames,
			)
			break
		}

		targetTime := now.Add(time.Duration(i) * c.config.Step)
		kf, err := c.prop.PropagateToTime(ctx, targetTime)
		if err != nil {
			c.logger.Warn("cutover propagation failed",
				"timestamp", targetTime.UTC().Format(time.RFC3339),
				"error", err,
			)
			metrics.IncCacheRegenerationErrors()
			continue
		}

		newEntries[c.RoundToStep(kf.Timestamp)] = &Entry{
			Keyframe:    kf,
			GeneratedAt: time.Now(),
		}
		generated++
	}

	// Atomic swap.
	c.replaceAll(newEntries)
	c.currentFetchedAt = ds.FetchedAt

	duration := time.Since(start)
	c.logger.Info("TLE cutover complete",
		"duration_ms", duration.Milliseconds(),
		"entries_replaced", generated,
	)
	metrics.ObserveCacheRegenerationDuration(duration)
}
