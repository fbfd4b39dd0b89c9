package tle

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/metrics"
)

// DefaultRefreshSchedule matches CelesTrak's update cadence; element
// sets for the stations group change a few times per day.
const DefaultRefreshSchedule = "@every 6h"

// refreshTimeout bounds one pipeline pass, network included.
const refreshTimeout = 2 * time.Minute

// Refresher runs the fetch, parse, publish, persist pipeline on a cron
// schedule.
type Refresher struct {
	fetcher *Fetcher
	store   *Store
	cache   *Cache // nil disables disk persistence
	logger  *slog.Logger
	cron    *cron.Cron
}

// NewRefresher wires the pipeline. cache may be nil.
func NewRefresher(fetcher *Fetcher, store *Store, cache *Cache, logger *slog.Logger) *Refresher {
	return &Refresher{
		fetcher: fetcher,
		store:   store,
		cache:   cache,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Start schedules periodic refreshes. schedule is a cron expression or
// descriptor such as "@every 6h"; empty selects DefaultRefreshSchedule.
// It does not run an immediate refresh; call Refresh for that.
func (r *Refresher) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultRefreshSchedule
	}
	_, err := r.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		if err := r.Refresh(ctx); err != nil {
			r.logger.Error("scheduled TLE refresh failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	r.cron.Start()
	r.logger.Info("TLE refresher started", "schedule", schedule, "source", r.fetcher.SourceURL())
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	<-r.cron.Stop().Done()
}

// Refresh runs one pipeline pass: fetch, parse, dedupe, publish, then
// persist the raw text. A failure leaves the previously published
// dataset in place. Concurrent calls are serialized on the store.
func (r *Refresher) Refresh(ctx context.Context) error {
	r.store.Lock()
	defer r.store.Unlock()

	start := time.Now()
	raw, err := r.fetcher.Fetch(ctx)
	if err != nil {
		metrics.IncTLERefreshErrors()
		return fmt.Errorf("fetching TLE data: %w", err)
	}

	entries, err := Parse(bytes.NewReader(raw), r.logger)
	if err != nil {
		metrics.IncTLERefreshErrors()
		return fmt.Errorf("parsing TLE data: %w", err)
	}
	entries = Dedupe(entries)
	if len(entries) == 0 {
		metrics.IncTLERefreshErrors()
		return fmt.Errorf("no valid TLE entries in %d bytes from %s", len(raw), r.fetcher.SourceURL())
	}

	fetchedAt := time.Now().UTC()
	r.store.Set(NewDataset(r.fetcher.SourceURL(), fetchedAt, entries))
	metrics.SetTLEDatasetCount(len(entries))
	metrics.SetTLEDatasetAge(0)

	if r.cache != nil {
		// The dataset is already live; disk persistence is best-effort.
		if err := r.cache.Write(raw, fetchedAt); err != nil {
			r.logger.Warn("writing TLE cache failed", "error", err)
		}
	}

	r.logger.Info("TLE dataset refreshed",
		"satellites", len(entries),
		"source", r.fetcher.SourceURL(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// LoadFromCache seeds the store from the newest disk snapshot.
func (r *Refresher) LoadFromCache() error {
	if r.cache == nil {
		return fmt.Errorf("no cache configured")
	}
	raw, ts, err := r.cache.LoadLatest()
	if err != nil {
		return err
	}

	entries, err := Parse(bytes.NewReader(raw), r.logger)
	if err != nil {
		return fmt.Errorf("parsing cached TLE data: %w", err)
	}
	entries = Dedupe(entries)
	if len(entries) == 0 {
		return fmt.Errorf("cached TLE data contains no valid entries")
	}

	r.store.Set(NewDataset("cache:"+r.fetcher.SourceURL(), ts, entries))
	metrics.SetTLEDatasetCount(len(entries))
	r.logger.Info("TLE dataset loaded from cache", "satellites", len(entries), "fetched_at", ts)
	return nil
}
