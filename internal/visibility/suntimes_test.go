package visibility

import (
	"testing"
	"time"
)

func TestComputeSunTimes_NYCSolstice(t *testing.T) {
	obs := testObserver(t, 40.7128, -74.0060, 10, "America/New_York")
	date := time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC)

	st := ComputeSunTimes(obs, date, Options{})
	if st.Status != StatusEvents {
		t.Fatalf("status = %q, want events", st.Status)
	}

	chain := []struct {
		name string
		at   *time.Time
	}{
		{"astronomical_dawn", st.AstronomicalDawn},
		{"nautical_dawn", st.NauticalDawn},
		{"civil_dawn", st.CivilDawn},
		{"sunrise", st.Sunrise},
		{"sunset", st.Sunset},
		{"civil_dusk", st.CivilDusk},
		{"nautical_dusk", st.NauticalDusk},
		{"astronomical_dusk", st.AstronomicalDusk},
	}
	for _, c := range chain {
		if c.at == nil {
			t.Fatalf("%s is nil, want a time", c.name)
		}
	}
	for i := 1; i < len(chain); i++ {
		if !chain[i].at.After(*chain[i-1].at) {
			t.Errorf("%s (%v) should follow %s (%v)", chain[i].name, chain[i].at, chain[i-1].name, chain[i-1].at)
		}
	}

	const tol = 2 * time.Minute
	wantRise := time.Date(2024, time.June, 21, 9, 25, 0, 0, time.UTC)
	wantSet := time.Date(2024, time.June, 22, 0, 31, 0, 0, time.UTC)
	if d := st.Sunrise.Sub(wantRise); d < -tol || d > tol {
		t.Errorf("sunrise = %v, want %v +/- 2m", st.Sunrise.UTC(), wantRise)
	}
	if d := st.Sunset.Sub(wantSet); d < -tol || d > tol {
		t.Errorf("sunset = %v, want %v +/- 2m", st.Sunset.UTC(), wantSet)
	}

	// Almanac day length for the date is 15h05m46s.
	if got, want := st.DayLengthSeconds, 54346.0; got < want-300 || got > want+300 {
		t.Errorf("day length = %.0f s, want ~%.0f", got, want)
	}
}

func TestComputeSunTimes_UTCWindowWrap(t *testing.T) {
	// With a UTC window at a western longitude the day starts mid-night
	// locally: the set belongs to the previous local evening and lands
	// before the rise. Lit time is then the sum of both window edges.
	obs := testObserver(t, 40.7128, -74.0060, 10, "")
	date := time.Date(2024, time.June, 21, 12, 0, 0, 0, time.UTC)

	st := ComputeSunTimes(obs, date, Options{})
	if st.Status != StatusEvents {
		t.Fatalf("status = %q, want events", st.Status)
	}
	if st.Sunrise == nil || st.Sunset == nil {
		t.Fatalf("want both sunrise and sunset, got %+v", st)
	}
	if !st.Sunset.Before(*st.Sunrise) {
		t.Fatalf("sunset %v should precede sunrise %v in the UTC window", st.Sunset, st.Sunrise)
	}
	if got, want := st.DayLengthSeconds, 54346.0; got < want-300 || got > want+300 {
		t.Errorf("wrapped day length = %.0f s, want ~%.0f", got, want)
	}
}

func TestComputeSunTimes_PolarSummer(t *testing.T) {
	obs := testObserver(t, 69.6492, 18.9553, 0, "")
	st := ComputeSunTimes(obs, time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC), Options{})

	if st.Status != StatusAlwaysUp {
		t.Fatalf("status = %q, want always_up", st.Status)
	}
	for name, at := range map[string]*time.Time{
		"sunrise":           st.Sunrise,
		"sunset":            st.Sunset,
		"civil_dawn":        st.CivilDawn,
		"civil_dusk":        st.CivilDusk,
		"nautical_dawn":     st.NauticalDawn,
		"nautical_dusk":     st.NauticalDusk,
		"astronomical_dawn": st.AstronomicalDawn,
		"astronomical_dusk": st.AstronomicalDusk,
	} {
		if at != nil {
			t.Errorf("%s = %v during midnight sun, want nil", name, at)
		}
	}
	if st.DayLengthSeconds != 86400 {
		t.Errorf("day length = %.0f s, want 86400", st.DayLengthSeconds)
	}
}

func TestComputeSunTimes_PolarWinter(t *testing.T) {
	// Polar night in Tromso: the Sun stays below the horizon but climbs
	// to about -3 deg at midday, so every twilight tier still has a dawn
	// and dusk crossing even though sunrise never happens.
	obs := testObserver(t, 69.6492, 18.9553, 0, "")
	st := ComputeSunTimes(obs, time.Date(2024, time.December, 21, 0, 0, 0, 0, time.UTC), Options{})

	if st.Status != StatusAlwaysDown {
		t.Fatalf("status = %q, want always_down", st.Status)
	}
	if st.Sunrise != nil || st.Sunset != nil {
		t.Errorf("sunrise/sunset = %v/%v during polar night, want nil", st.Sunrise, st.Sunset)
	}
	for name, at := range map[string]*time.Time{
		"civil_dawn":        st.CivilDawn,
		"civil_dusk":        st.CivilDusk,
		"nautical_dawn":     st.NauticalDawn,
		"nautical_dusk":     st.NauticalDusk,
		"astronomical_dawn": st.AstronomicalDawn,
		"astronomical_dusk": st.AstronomicalDusk,
	} {
		if at == nil {
			t.Errorf("%s is nil, want a crossing", name)
		}
	}
	if st.CivilDawn != nil && st.CivilDusk != nil && !st.CivilDawn.Before(*st.CivilDusk) {
		t.Errorf("civil dawn %v should precede civil dusk %v", st.CivilDawn, st.CivilDusk)
	}
	if st.DayLengthSeconds != 0 {
		t.Errorf("day length = %.0f s, want 0", st.DayLengthSeconds)
	}
}
