package tle

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Parse reads 3-line NORAD TLE format from r and returns the parsed
// entries. Malformed entries — bad prefixes, checksum mismatches,
// unparseable fields — are skipped with a warning; only a read failure
// is an error.
func Parse(r io.Reader, logger *slog.Logger) ([]TLEEntry, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading TLE data: %w", err)
	}

	var entries []TLEEntry
	for i := 0; i+2 < len(lines); {
		name := lines[i]
		line1 := lines[i+1]
		line2 := lines[i+2]

		if !strings.HasPrefix(line1, "1 ") || !strings.HasPrefix(line2, "2 ") {
			// Resync one line at a time until a valid triplet lines up.
			logger.Warn("skipping malformed TLE entry", "line_index", i, "name", name)
			i++
			continue
		}

		if !checksumOK(line1) || !checksumOK(line2) {
			logger.Warn("skipping TLE entry with checksum mismatch", "name", name)
			i += 3
			continue
		}

		// NORAD ID sits in line1 cols 3-7 (0-indexed 2..7).
		noradStr := strings.TrimSpace(line1[2:7])
		noradID, err := strconv.Atoi(noradStr)
		if err != nil {
			logger.Warn("skipping TLE entry with invalid NORAD ID", "norad_str", noradStr, "name", name)
			i += 3
			continue
		}

		// Epoch sits in line1 cols 19-32 (0-indexed 18..32).
		epochStr := strings.TrimSpace(line1[18:32])
		epoch, err := parseEpoch(epochStr)
		if err != nil {
			logger.Warn("skipping TLE entry with invalid epoch", "epoch_str", epochStr, "name", name, "error", err)
			i += 3
			continue
		}

		entries = append(entries, TLEEntry{
			NORADID: noradID,
			Name:    strings.TrimSpace(name),
			Epoch:   epoch,
			Line1:   line1,
			Line2:   line2,
		})
		i += 3
	}

	return entries, nil
}

// checksumOK verifies the mod-10 check digit in column 69: digits add
// their value, minus signs add one, everything else adds nothing.
func checksumOK(line string) bool {
	if len(line) != 69 {
		return false
	}
	sum := 0
	for _, ch := range line[:68] {
		switch {
		case ch >= '0' && ch <= '9':
			sum += int(ch - '0')
		case ch == '-':
			sum++
		}
	}
	return byte('0'+sum%10) == line[68]
}

// Dedupe collapses duplicate NORAD IDs, keeping the newest epoch.
// Order follows first appearance. Fetching overlapping source groups —
// the stations group plus a per-satellite query — produces duplicates.
func Dedupe(entries []TLEEntry) []TLEEntry {
	seen := make(map[int]int, len(entries)) // NORAD ID -> index in out
	out := make([]TLEEntry, 0, len(entries))
	for _, e := range entries {
		if idx, ok := seen[e.NORADID]; ok {
			if e.Epoch.After(out[idx].Epoch) {
				out[idx] = e
			}
			continue
		}
		seen[e.NORADID] = len(out)
		out = append(out, e)
	}
	return out
}

// parseEpoch converts a TLE epoch string in YYDDD.DDDDDDDD format to
// time.Time. Year 00-56 maps to the 2000s, 57-99 to the 1900s.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch string too short: %q", s)
	}

	yearStr := s[:2]
	dayStr := s[2:]

	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch year %q: %w", yearStr, err)
	}

	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}

	dayOfYear, err := strconv.ParseFloat(dayStr, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid epoch day %q: %w", dayStr, err)
	}

	// Day of year is 1-based: day 1.0 is Jan 1 00:00 UTC.
	t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return t.Add(time.Duration((dayOfYear - 1) * float64(24*time.Hour))), nil
}
