package tle

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store publishes the current TLE dataset to concurrent readers.
// Readers always see a complete dataset; a refresh swaps the pointer
// atomically.
type Store struct {
	dataset atomic.Pointer[TLEDataset]
	mu      sync.Mutex // serializes refresh pipelines
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil if none has been loaded.
func (s *Store) Get() *TLEDataset {
	return s.dataset.Load()
}

// Set atomically replaces the current dataset.
func (s *Store) Set(ds *TLEDataset) {
	s.dataset.Store(ds)
}

// Count returns the number of satellites in the current dataset, or 0
// when none is loaded.
func (s *Store) Count() int {
	ds := s.dataset.Load()
	if ds == nil {
		return 0
	}
	return len(ds.Satellites)
}

// AgeSeconds returns the age of the current dataset in seconds, or -1
// when none is loaded.
func (s *Store) AgeSeconds() float64 {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.FetchedAt).Seconds()
}

// Lock acquires the refresh mutex so only one pipeline runs at a time.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the refresh mutex.
func (s *Store) Unlock() {
	s.mu.Unlock()
}
