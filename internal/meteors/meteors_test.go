package meteors

import (
	"math"
	"testing"
	"time"
)

func findActivity(acts []Activity, name string) *Activity {
	for i := range acts {
		if acts[i].Name == name {
			return &acts[i]
		}
	}
	return nil
}

func TestActive_PerseidsSeason(t *testing.T) {
	// Mid-August: Perseids near peak, Delta Aquariids tailing off.
	at := time.Date(2024, time.August, 12, 12, 0, 0, 0, time.UTC)
	acts := Active(at)

	per := findActivity(acts, "Perseids")
	if per == nil {
		t.Fatalf("Perseids not active on %v: %+v", at, acts)
	}
	if per.ZHR != 100 {
		t.Errorf("Perseids ZHR = %d, want 100", per.ZHR)
	}
	if per.DaysToPeak < 0 || per.DaysToPeak > 1 {
		t.Errorf("Perseids days-to-peak = %.2f, want within a day before the Aug 13 peak", per.DaysToPeak)
	}
	if per.Peak.Year() != 2024 || per.Peak.Month() != time.August || per.Peak.Day() != 13 {
		t.Errorf("Perseids peak = %v, want 2024-08-13", per.Peak)
	}

	if da := findActivity(acts, "Delta Aquariids"); da == nil {
		t.Errorf("Delta Aquariids should still be active on %v", at)
	} else if da.DaysToPeak >= 0 {
		t.Errorf("Delta Aquariids days-to-peak = %.2f, want negative after the Jul 30 peak", da.DaysToPeak)
	}

	// Waxing gibbous moon on this date.
	if per.MoonInterference != InterferenceModerate {
		t.Errorf("interference = %q (illumination %.2f), want moderate", per.MoonInterference, per.MoonIllumination)
	}

	for i := 1; i < len(acts); i++ {
		if acts[i].Peak.Before(acts[i-1].Peak) {
			t.Errorf("activities not ordered by peak: %v before %v", acts[i].Peak, acts[i-1].Peak)
		}
	}
}

func TestActive_YearBoundary(t *testing.T) {
	// The Quadrantid window runs Dec 28 through Jan 12 with the peak on
	// Jan 3 of the following calendar year.
	before := Active(time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC))
	quad := findActivity(before, "Quadrantids")
	if quad == nil {
		t.Fatal("Quadrantids not active on Dec 30")
	}
	if quad.Peak.Year() != 2025 || quad.Peak.Month() != time.January || quad.Peak.Day() != 3 {
		t.Errorf("peak = %v, want 2025-01-03", quad.Peak)
	}
	if quad.DaysToPeak <= 0 || quad.DaysToPeak > 7 {
		t.Errorf("days-to-peak = %.2f, want a few days ahead", quad.DaysToPeak)
	}
	if g := findActivity(before, "Geminids"); g != nil {
		t.Error("Geminids window ends Dec 17, should not be active on Dec 30")
	}

	after := Active(time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC))
	quad = findActivity(after, "Quadrantids")
	if quad == nil {
		t.Fatal("Quadrantids not active on Jan 5")
	}
	if quad.Peak.Year() != 2025 {
		t.Errorf("peak year = %d, want 2025", quad.Peak.Year())
	}
	if quad.DaysToPeak >= 0 {
		t.Errorf("days-to-peak = %.2f, want negative after the peak", quad.DaysToPeak)
	}
}

func TestActive_QuietPeriods(t *testing.T) {
	for _, at := range []time.Time{
		time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
	} {
		if acts := Active(at); len(acts) != 0 {
			t.Errorf("Active(%v) = %+v, want none", at, acts)
		}
	}
}

func TestActive_MoonInterference(t *testing.T) {
	// Geminids 2024 peaked a day before full moon; Eta Aquariids 2024
	// peaked two days before new moon.
	gem := Active(time.Date(2024, time.December, 13, 0, 0, 0, 0, time.UTC))
	if a := findActivity(gem, "Geminids"); a == nil {
		t.Fatal("Geminids not active on Dec 13")
	} else if a.MoonInterference != InterferenceSevere {
		t.Errorf("Geminids interference = %q (illumination %.2f), want severe", a.MoonInterference, a.MoonIllumination)
	}

	eta := Active(time.Date(2024, time.May, 6, 0, 0, 0, 0, time.UTC))
	if a := findActivity(eta, "Eta Aquariids"); a == nil {
		t.Fatal("Eta Aquariids not active on May 6")
	} else if a.MoonInterference != InterferenceLow {
		t.Errorf("Eta Aquariids interference = %q (illumination %.2f), want low", a.MoonInterference, a.MoonIllumination)
	}
}

func TestInterferenceFor_Tiers(t *testing.T) {
	tests := []struct {
		illum float64
		want  string
	}{
		{0.0, InterferenceLow},
		{0.29, InterferenceLow},
		{0.3, InterferenceModerate},
		{0.69, InterferenceModerate},
		{0.7, InterferenceSevere},
		{1.0, InterferenceSevere},
	}
	for _, tc := range tests {
		if got := interferenceFor(tc.illum); got != tc.want {
			t.Errorf("interferenceFor(%.2f) = %q, want %q", tc.illum, got, tc.want)
		}
	}
}

func TestCatalog_EveryShowerActiveAtPeak(t *testing.T) {
	showers := Catalog()
	if len(showers) != 8 {
		t.Fatalf("catalog has %d showers, want 8", len(showers))
	}

	seen := map[string]bool{}
	for _, s := range showers {
		if seen[s.Name] {
			t.Errorf("duplicate shower %q", s.Name)
		}
		seen[s.Name] = true
		if s.ZHR <= 0 {
			t.Errorf("%s has ZHR %d", s.Name, s.ZHR)
		}

		at := time.Date(2024, s.peak.month, s.peak.day, 12, 0, 0, 0, time.UTC)
		a := findActivity(Active(at), s.Name)
		if a == nil {
			t.Errorf("%s not active at its own peak %v", s.Name, at)
			continue
		}
		if math.Abs(a.DaysToPeak) > 1 {
			t.Errorf("%s days-to-peak at peak date = %.2f, want within a day", s.Name, a.DaysToPeak)
		}
	}
}
