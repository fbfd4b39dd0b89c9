package passes

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
)

// Real ISS elements, epoch 2025-02-14T04:19:40Z.
var issTLE = tle.TLEEntry{
	NORADID: 25544,
	Name:    "ISS (ZARYA)",
	Line1:   "1 25544U 98067A   25045.18032407  .00016717  00000+0  30099-3 0  9996",
	Line2:   "2 25544  51.6412 193.5765 0003457 126.2851 233.8519 15.49874301495057",
	Epoch:   time.Date(2025, 2, 14, 4, 19, 40, 0, time.UTC),
}

func mustObserver(lat, lon, elev float64) transform.Observer {
	obs, err := transform.NewObserver(lat, lon, elev, "")
	if err != nil {
		panic(err)
	}
	return obs
}

var nycObserver = mustObserver(40.7128, -74.006, 10)

var validKinds = map[string]bool{"night": true, "dawn": true, "dusk": true, "daylight": true}
var validQualities = map[string]bool{"excellent": true, "good": true, "fair": true, "poor": true}

func TestPredict_ISS(t *testing.T) {
	req := Request{
		Observer:     nycObserver,
		Entries:      []tle.TLEEntry{issTLE},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 24,
		MinElevation: 0,
		MaxPasses:    10,
	}

	results := Predict(context.Background(), req)
	if len(results) != 1 {
		t.Fatalf("expected 1 satellite result, got %d", len(results))
	}

	sat := results[0]
	if sat.NORADID != 25544 || sat.Name != "ISS (ZARYA)" {
		t.Errorf("identity = %d %q, want 25544 ISS (ZARYA)", sat.NORADID, sat.Name)
	}
	if sat.Error != "" {
		t.Fatalf("unexpected error: %s", sat.Error)
	}
	if len(sat.Passes) == 0 {
		t.Fatal("expected at least 1 ISS pass over NYC in 24h")
	}

	for i, p := range sat.Passes {
		if p.DurationSeconds < 10 {
			t.Errorf("pass %d: duration %.1fs too short", i, p.DurationSeconds)
		}
		if p.MaxElevation <= 0 || p.MaxElevation > 90 {
			t.Errorf("pass %d: max elevation %.2f out of range", i, p.MaxElevation)
		}
		for name, az := range map[string]float64{"start": p.StartAzimuth, "max": p.AzimuthAtMax, "end": p.EndAzimuth} {
			if az < 0 || az >= 360 {
				t.Errorf("pass %d: %s azimuth %.2f out of range", i, name, az)
			}
		}
		if p.MaxElevationTime.Before(p.StartTime) || p.MaxElevationTime.After(p.EndTime) {
			t.Errorf("pass %d: culmination %v outside [%v, %v]", i, p.MaxElevationTime, p.StartTime, p.EndTime)
		}
		if i > 0 && p.StartTime.Before(sat.Passes[i-1].EndTime) {
			t.Errorf("pass %d overlaps previous: start %v before previous end %v", i, p.StartTime, sat.Passes[i-1].EndTime)
		}

		// Classification must be self-consistent.
		if p.Visible != (p.Sunlit && p.ObserverDark) {
			t.Errorf("pass %d: visible=%v but sunlit=%v dark=%v", i, p.Visible, p.Sunlit, p.ObserverDark)
		}
		if !validKinds[p.Kind] {
			t.Errorf("pass %d: kind %q", i, p.Kind)
		}
		if !validQualities[p.Quality] {
			t.Errorf("pass %d: quality %q", i, p.Quality)
		}
		if p.Kind == "daylight" && p.ObserverDark {
			t.Errorf("pass %d: daylight pass with dark observer", i)
		}

		if len(p.GroundTrack) == 0 {
			t.Errorf("pass %d: expected ground track points, got none", i)
		}
		for j, gt := range p.GroundTrack {
			if gt.Latitude < -90 || gt.Latitude > 90 {
				t.Errorf("pass %d gt %d: latitude %.2f out of range", i, j, gt.Latitude)
			}
			if gt.Longitude < -180 || gt.Longitude > 180 {
				t.Errorf("pass %d gt %d: longitude %.2f out of range", i, j, gt.Longitude)
			}
			if gt.Altitude < 100000 || gt.Altitude > 1000000 {
				t.Errorf("pass %d gt %d: altitude %.0f m out of LEO range", i, j, gt.Altitude)
			}
			if gt.Elevation < -0.5 || gt.Elevation > 90 {
				t.Errorf("pass %d gt %d: elevation %.2f out of range", i, j, gt.Elevation)
			}
		}

		t.Logf("pass %d: start=%v maxEl=%.1f az=%.1f dur=%.0fs kind=%s quality=%s visible=%v",
			i, p.StartTime.Format(time.RFC3339), p.MaxElevation, p.AzimuthAtMax, p.DurationSeconds, p.Kind, p.Quality, p.Visible)
	}
}

func TestPredict_MinElevationFilter(t *testing.T) {
	base := Request{
		Observer:     nycObserver,
		Entries:      []tle.TLEEntry{issTLE},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 48,
		MaxPasses:    20,
	}

	low := base
	low.MinElevation = 0
	high := base
	high.MinElevation = 45

	nLow := len(Predict(context.Background(), low)[0].Passes)
	nHigh := len(Predict(context.Background(), high)[0].Passes)

	if nLow == 0 {
		t.Fatal("expected passes with min elevation 0")
	}
	if nHigh >= nLow {
		t.Errorf("min elevation 45 found %d passes, should be fewer than %d", nHigh, nLow)
	}
}

func TestPredict_InclinationCeiling(t *testing.T) {
	// From Fairbanks (64.8N) the ISS orbital plane (51.6 deg) never
	// comes closer than ~13 deg of latitude, capping culmination around
	// 9 deg. No predicted pass may beat that geometry.
	fairbanks := mustObserver(64.8378, -147.7164, 136)

	req := Request{
		Observer:     fairbanks,
		Entries:      []tle.TLEEntry{issTLE},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 48,
		MinElevation: 0,
		MaxPasses:    30,
	}

	results := Predict(context.Background(), req)
	sat := results[0]
	if sat.Error != "" {
		t.Fatalf("unexpected error: %s", sat.Error)
	}
	if len(sat.Passes) == 0 {
		t.Fatal("expected low grazing passes from Fairbanks over 48h")
	}
	for i, p := range sat.Passes {
		if p.MaxElevation > 12 {
			t.Errorf("pass %d: max elevation %.1f exceeds the geometric ceiling for 51.6 deg inclination at 64.8N", i, p.MaxElevation)
		}
	}
}

func TestPredict_StaleElements(t *testing.T) {
	req := Request{
		Observer:     nycObserver,
		Entries:      []tle.TLEEntry{issTLE},
		Start:        issTLE.Epoch.Add(20 * 24 * time.Hour),
		HorizonHours: 24,
		MinElevation: 0,
		MaxPasses:    10,
	}

	results := Predict(context.Background(), req)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == "" {
		t.Fatal("20-day-old elements must fail, not silently degrade")
	}
	if !strings.Contains(results[0].Error, "stale") {
		t.Errorf("error = %q, want mention of staleness", results[0].Error)
	}
	if len(results[0].Passes) != 0 {
		t.Errorf("stale elements still produced %d passes", len(results[0].Passes))
	}
}

func TestPredict_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := Request{
		Observer:     nycObserver,
		Entries:      []tle.TLEEntry{issTLE},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 24,
		MinElevation: 0,
		MaxPasses:    10,
	}

	results := Predict(ctx, req)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestPredict_InvalidTLE(t *testing.T) {
	badEntry := tle.TLEEntry{
		NORADID: 99999,
		Name:    "BAD SAT",
		Epoch:   issTLE.Epoch,
		Line1:   "1 99999U 00000A   25045.00000000  .00000000  00000+0  00000+0 0  0000",
		Line2:   "2 99999   0.0000   0.0000 0000000   0.0000   0.0000  0.00000000 0000",
	}

	req := Request{
		Observer:     nycObserver,
		Entries:      []tle.TLEEntry{issTLE, badEntry},
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 24,
		MinElevation: 0,
		MaxPasses:    10,
	}

	results := Predict(context.Background(), req)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != "" {
		t.Errorf("ISS should succeed, got error: %s", results[0].Error)
	}
	if results[1].Error == "" {
		t.Error("bad TLE should report a per-satellite error")
	}
}

func TestSunlit_CylinderModel(t *testing.T) {
	// Sun at RA 0, dec 0 sits along +X, so the shadow cylinder extends
	// toward -X.
	sun := ephemeris.Equatorial{RADeg: 0, DecDeg: 0}

	tests := []struct {
		name    string
		x, y, z float64
		want    bool
	}{
		{"sunward side", 7000, 0, 0, true},
		{"deep in shadow", -7000, 0, 0, false},
		{"anti-solar but outside cylinder", -7000, 6800, 0, true},
		{"anti-solar inside cylinder high z", -20000, 0, 6000, false},
		{"terminator plane", 0, 6800, 0, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			teme := transform.PositionTEME{X: tc.x, Y: tc.y, Z: tc.z}
			if got := sunlit(teme, sun); got != tc.want {
				t.Errorf("sunlit(%v) = %v, want %v", teme, got, tc.want)
			}
		})
	}
}

func TestPassClassification(t *testing.T) {
	kinds := []struct {
		sunAlt float64
		rising bool
		want   string
	}{
		{-25, false, "night"},
		{-10, true, "dawn"},
		{-10, false, "dusk"},
		{-3, false, "daylight"},
		{20, true, "daylight"},
	}
	for _, tc := range kinds {
		if got := passKind(tc.sunAlt, tc.rising); got != tc.want {
			t.Errorf("passKind(%.0f, %v) = %q, want %q", tc.sunAlt, tc.rising, got, tc.want)
		}
	}

	qualities := []struct {
		maxEl float64
		want  string
	}{
		{75, "excellent"}, {45, "good"}, {15, "fair"}, {5, "poor"},
	}
	for _, tc := range qualities {
		if got := passQuality(tc.maxEl); got != tc.want {
			t.Errorf("passQuality(%.0f) = %q, want %q", tc.maxEl, got, tc.want)
		}
	}

	mags := []struct {
		maxEl float64
		want  float64
	}{
		{80, -3.5}, {60, -2.5}, {40, -1.5}, {20, -0.5},
	}
	for _, tc := range mags {
		if got := estimateMagnitude(tc.maxEl); got != tc.want {
			t.Errorf("estimateMagnitude(%.0f) = %.1f, want %.1f", tc.maxEl, got, tc.want)
		}
	}
}

// haversineKm computes the great-circle distance between two geodetic
// points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	p1 := lat1 * math.Pi / 180
	p2 := lat2 * math.Pi / 180
	dp := (lat2 - lat1) * math.Pi / 180
	dl := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dp/2)*math.Sin(dp/2) + math.Cos(p1)*math.Cos(p2)*math.Sin(dl/2)*math.Sin(dl/2)
	return R * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// maxGroundDistKm bounds how far the sub-satellite point can be from
// the observer for a satellite seen at elevation elevDeg and altitude
// altM: rho = acos(R cos(e) / (R+h)) - e.
func maxGroundDistKm(elevDeg, altM float64) float64 {
	const R = 6371.0
	h := altM / 1000.0
	e := elevDeg * math.Pi / 180
	arg := R * math.Cos(e) / (R + h)
	if arg > 1 {
		arg = 1
	}
	rho := math.Acos(arg) - e
	if rho < 0 {
		rho = 0
	}
	return R * rho
}

func TestGroundTrack_PhysicalConsistency(t *testing.T) {
	const obsLat, obsLon = 40.0150, -105.2705

	req := Request{
		Observer:     mustObserver(obsLat, obsLon, 1655),
		Entries:      []tle.TLEEntry{issTLE},
		Start:        time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC),
		HorizonHours: 24,
		MinElevation: 0,
		MaxPasses:    20,
	}

	results := Predict(context.Background(), req)
	sat := results[0]
	if sat.Error != "" {
		t.Fatalf("satellite error: %s", sat.Error)
	}
	if len(sat.Passes) == 0 {
		t.Fatal("no passes found in 24h; check TLE epoch vs start time")
	}

	for pi, p := range sat.Passes {
		for gi, gt := range p.GroundTrack {
			dist := haversineKm(obsLat, obsLon, gt.Latitude, gt.Longitude)
			maxPossible := maxGroundDistKm(math.Max(gt.Elevation, 0), gt.Altitude)
			// 50% slack covers sampling and refinement rounding.
			if maxPossible > 0 && dist > maxPossible*1.5 {
				t.Errorf("pass %d gt[%d]: sub-satellite point %.0f km away exceeds max physical %.0f km (el=%.1f alt=%.0fm)",
					pi, gi, dist, maxPossible, gt.Elevation, gt.Altitude)
			}
		}
	}
}

func BenchmarkPredict100Sats24h(b *testing.B) {
	entries := make([]tle.TLEEntry, 100)
	for i := range entries {
		entries[i] = issTLE
		entries[i].NORADID = 25544 + i
	}

	req := Request{
		Observer:     nycObserver,
		Entries:      entries,
		Start:        time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC),
		HorizonHours: 24,
		MinElevation: 10,
		MaxPasses:    10,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Predict(context.Background(), req)
	}
}
