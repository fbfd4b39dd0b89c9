// Command diag computes a single visibility report from the command
// line and prints a human-readable summary. It exercises the whole
// engine — ephemeris, event search, moon phase, meteors, and pass
// prediction when a TLE file is given — without running the server.
//
//	diag -lat 39.7392 -lon -104.9903 -elev 1609 -tz America/Denver -tle stations.txt
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/report"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/visibility"
)

func main() {
	lat := flag.Float64("lat", 39.7392, "observer latitude, degrees north")
	lon := flag.Float64("lon", -104.9903, "observer longitude, degrees east")
	elev := flag.Float64("elev", 1609, "observer elevation, meters")
	tz := flag.String("tz", "", "IANA timezone (default UTC)")
	date := flag.String("date", "", "query instant, RFC 3339 (default now)")
	horizon := flag.Int("horizon", 1, "pass prediction horizon, days")
	minElevation := flag.Float64("min-elevation", 10, "minimum pass elevation, degrees")
	tleFile := flag.String("tle", "", "TLE file for pass prediction")
	verbose := flag.Bool("v", false, "log at debug level")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	obs, err := transform.NewObserver(*lat, *lon, *elev, *tz)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	at := time.Now().UTC()
	if *date != "" {
		at, err = time.Parse(time.RFC3339, *date)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR: -date must be RFC 3339:", err)
			os.Exit(1)
		}
	}

	var elements []tle.TLEEntry
	if *tleFile != "" {
		data, err := os.ReadFile(*tleFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR reading TLE file:", err)
			os.Exit(1)
		}
		elements, err = tle.Parse(bytes.NewReader(data), logger)
		if err != nil {
			fmt.Fprintln(os.Stderr, "ERROR parsing TLE file:", err)
			os.Exit(1)
		}
		elements = tle.Dedupe(elements)
		fmt.Printf("Loaded %d TLE entries from %s\n", len(elements), *tleFile)
	}

	rep, err := report.Compute(context.Background(), report.Request{
		Observer:        obs,
		At:              at,
		HorizonDays:     *horizon,
		MinElevationDeg: *minElevation,
		Elements:        elements,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}

	printReport(rep)
}

func printReport(rep *report.VisibilityReport) {
	fmt.Printf("\nObserver %.4f°, %.4f°, %.0f m (%s)\n",
		rep.Observer.LatDeg, rep.Observer.LonDeg, rep.Observer.ElevM, rep.Observer.TZ)
	fmt.Printf("At %s\n\n", rep.At.Format(time.RFC3339))

	fmt.Println("Bodies:")
	for _, b := range rep.Bodies {
		if b.Error != "" {
			fmt.Printf("  %-8s ERROR %s\n", b.Body, b.Error)
			continue
		}
		line := fmt.Sprintf("  %-8s alt %6.1f°  az %6.1f°", b.Body, b.Horizontal.AltDeg, b.Horizontal.AzDeg)
		if b.Magnitude != nil {
			line += fmt.Sprintf("  mag %+.1f", *b.Magnitude)
		}
		if b.Confidence != "high" {
			line += fmt.Sprintf("  (%s confidence)", b.Confidence)
		}
		fmt.Println(line + "  " + describeTimes(b.Times))
	}

	fmt.Println("\nSun times:")
	printSunTime("sunrise", rep.SunTimes.Sunrise)
	printSunTime("sunset", rep.SunTimes.Sunset)
	printSunTime("civil dawn", rep.SunTimes.CivilDawn)
	printSunTime("civil dusk", rep.SunTimes.CivilDusk)
	printSunTime("astro dawn", rep.SunTimes.AstronomicalDawn)
	printSunTime("astro dusk", rep.SunTimes.AstronomicalDusk)
	fmt.Printf("  day length %s\n", time.Duration(rep.SunTimes.DayLengthSeconds)*time.Second)

	mp := rep.MoonPhase
	fmt.Printf("\nMoon: %s, %.0f%% illuminated, age %.1f d; next new %s, next full %s\n",
		mp.Name, mp.Illumination*100, mp.AgeDays,
		mp.NextNewMoon.Format("2006-01-02"), mp.NextFullMoon.Format("2006-01-02"))

	if len(rep.Meteors) > 0 {
		fmt.Println("\nActive meteor showers:")
		for _, m := range rep.Meteors {
			fmt.Printf("  %-15s ZHR %3d  peak %s (%+.1f d)  moon %s\n",
				m.Name, m.ZHR, m.Peak.Format("Jan 2"), m.DaysToPeak, m.MoonInterference)
		}
	}

	if len(rep.Passes) > 0 {
		fmt.Println("\nSatellite passes:")
		total := 0
		for _, sat := range rep.Passes {
			if sat.Error != "" {
				fmt.Printf("  %s (%d): ERROR %s\n", sat.Name, sat.NORADID, sat.Error)
				continue
			}
			fmt.Printf("  %s (%d): %d passes\n", sat.Name, sat.NORADID, len(sat.Passes))
			total += len(sat.Passes)
			for _, p := range sat.Passes {
				visibility := "not visible"
				if p.Visible {
					visibility = fmt.Sprintf("visible (%s, %s, mag %+.1f)", p.Kind, p.Quality, p.Magnitude)
				}
				fmt.Printf("    %s  maxEl %5.1f°  az %3.0f°→%3.0f°  dur %3.0fs  %s\n",
					p.StartTime.Format(time.RFC3339), p.MaxElevation,
					p.StartAzimuth, p.EndAzimuth, p.DurationSeconds, visibility)
			}
		}
		fmt.Printf("\nTotal passes found: %d\n", total)
	}
}

func describeTimes(bt visibility.BodyTimes) string {
	switch bt.Status {
	case visibility.StatusAlwaysUp:
		return "always up"
	case visibility.StatusAlwaysDown:
		return "always down"
	}
	if bt.Err != "" {
		return "events unavailable: " + bt.Err
	}
	s := ""
	for _, e := range bt.Events {
		if s != "" {
			s += "  "
		}
		s += fmt.Sprintf("%s %s", e.Kind, e.Time.UTC().Format("15:04Z"))
	}
	return s
}

func printSunTime(name string, t *time.Time) {
	if t == nil {
		fmt.Printf("  %-11s —\n", name)
		return
	}
	fmt.Printf("  %-11s %s\n", name, t.UTC().Format("15:04:05Z"))
}
