// Package tle fetches, parses, caches, and refreshes NORAD two-line
// element sets. The rest of the engine consumes datasets through the
// Store and never touches the network itself.
package tle

import "time"

// TLEEntry is one satellite's two-line element set plus the fields the
// rest of the engine keys on.
type TLEEntry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// EpochRange bounds the element epochs in a dataset.
type EpochRange struct {
	Min time.Time `json:"min"`
	Max time.Time `json:"max"`
}

// TLEDataset is the result of one complete fetch.
type TLEDataset struct {
	Source     string     `json:"source"`
	FetchedAt  time.Time  `json:"fetched_at"`
	EpochRange EpochRange `json:"epoch_range"`
	Satellites []TLEEntry `json:"satellites"`
}

// NewDataset assembles a dataset from parsed entries and computes its
// epoch range.
func NewDataset(source string, fetchedAt time.Time, entries []TLEEntry) *TLEDataset {
	ds := &TLEDataset{
		Source:     source,
		FetchedAt:  fetchedAt,
		Satellites: entries,
	}
	for i, e := range entries {
		if i == 0 || e.Epoch.Before(ds.EpochRange.Min) {
			ds.EpochRange.Min = e.Epoch
		}
		if i == 0 || e.Epoch.After(ds.EpochRange.Max) {
			ds.EpochRange.Max = e.Epoch
		}
	}
	return ds
}
