package tle

import (
	"strings"
	"testing"
	"time"
)

// Same ISS orbit with an element epoch ten days earlier.
const issOldText = "ISS (ZARYA)\n1 25544U 98067A   24090.50000000  .00016717  00000-0  10270-3 0  9007\n2 25544  51.6400  90.0000 0001000   0.0000   0.0000 15.50000000    09\n"

func TestParse_Entries(t *testing.T) {
	entries, err := Parse(strings.NewReader(issText+starlinkText), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	iss := entries[0]
	if iss.NORADID != 25544 {
		t.Errorf("NORAD ID %d, want 25544", iss.NORADID)
	}
	if iss.Name != "ISS (ZARYA)" {
		t.Errorf("name %q, want ISS (ZARYA)", iss.Name)
	}
	// Epoch 24100.5: day 100 of leap-year 2024 is April 9.
	wantEpoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !iss.Epoch.Equal(wantEpoch) {
		t.Errorf("epoch %v, want %v", iss.Epoch, wantEpoch)
	}
	if !strings.HasPrefix(iss.Line1, "1 25544U") || !strings.HasPrefix(iss.Line2, "2 25544") {
		t.Error("element lines not carried through")
	}

	if entries[1].NORADID != 44713 {
		t.Errorf("second entry NORAD ID %d, want 44713", entries[1].NORADID)
	}
}

func TestParse_ResyncAfterGarbage(t *testing.T) {
	text := "# GENERATED 2024-04-09\n" + issText + "stray comment line\n" + starlinkText
	entries, err := Parse(strings.NewReader(text), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 after resync", len(entries))
	}
	if entries[0].NORADID != 25544 || entries[1].NORADID != 44713 {
		t.Errorf("got NORAD IDs %d, %d, want 25544, 44713", entries[0].NORADID, entries[1].NORADID)
	}
}

func TestParse_ChecksumMismatch(t *testing.T) {
	// Corrupt the ISS check digit; the entry is dropped, the rest kept.
	corrupted := strings.Replace(issText, "0  9009", "0  9000", 1)
	entries, err := Parse(strings.NewReader(corrupted+starlinkText), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].NORADID != 44713 {
		t.Errorf("surviving entry NORAD ID %d, want 44713", entries[0].NORADID)
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"24100.50000000", time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)},
		{"00001.00000000", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		// Years 57-99 belong to the 1900s.
		{"57001.00000000", time.Date(1957, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"99365.00000000", time.Date(1999, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseEpoch(tt.in)
		if err != nil {
			t.Errorf("parseEpoch(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "1", "abcde", "24xyz.5"} {
		if _, err := parseEpoch(bad); err == nil {
			t.Errorf("parseEpoch(%q) accepted", bad)
		}
	}
}

func TestDedupe(t *testing.T) {
	all, err := Parse(strings.NewReader(issText+starlinkText+issOldText), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries before dedupe, want 3", len(all))
	}

	deduped := Dedupe(all)
	if len(deduped) != 2 {
		t.Fatalf("got %d entries after dedupe, want 2", len(deduped))
	}
	// First appearance keeps its slot; the newest epoch wins.
	if deduped[0].NORADID != 25544 || deduped[1].NORADID != 44713 {
		t.Fatalf("got NORAD IDs %d, %d, want 25544, 44713", deduped[0].NORADID, deduped[1].NORADID)
	}
	wantEpoch := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !deduped[0].Epoch.Equal(wantEpoch) {
		t.Errorf("kept epoch %v, want newest %v", deduped[0].Epoch, wantEpoch)
	}

	// Older entry first: the newer one still replaces it in place.
	reversed, err := Parse(strings.NewReader(issOldText+issText), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	deduped = Dedupe(reversed)
	if len(deduped) != 1 {
		t.Fatalf("got %d entries, want 1", len(deduped))
	}
	if !deduped[0].Epoch.Equal(wantEpoch) {
		t.Errorf("kept epoch %v, want newest %v", deduped[0].Epoch, wantEpoch)
	}
}

func TestNewDataset_EpochRange(t *testing.T) {
	entries, err := Parse(strings.NewReader(issOldText+issText), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	fetchedAt := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)
	ds := NewDataset("test", fetchedAt, entries)

	wantMin := time.Date(2024, 3, 30, 12, 0, 0, 0, time.UTC)
	wantMax := time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)
	if !ds.EpochRange.Min.Equal(wantMin) {
		t.Errorf("epoch range min %v, want %v", ds.EpochRange.Min, wantMin)
	}
	if !ds.EpochRange.Max.Equal(wantMax) {
		t.Errorf("epoch range max %v, want %v", ds.EpochRange.Max, wantMax)
	}
	if ds.Source != "test" || !ds.FetchedAt.Equal(fetchedAt) {
		t.Error("source or fetch time not carried through")
	}

	empty := NewDataset("test", fetchedAt, nil)
	if !empty.EpochRange.Min.IsZero() || !empty.EpochRange.Max.IsZero() {
		t.Error("empty dataset has a non-zero epoch range")
	}
}
