package visibility

import (
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/solver"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
)

// SunTimes is the Sun's day structure for one local calendar day: horizon
// crossings, the three twilight tiers, and total daylight. Absent crossings
// are nil — in polar night the Sun never rises but civil twilight can still
// occur, so every tier is independent.
type SunTimes struct {
	Status Status `json:"status"`

	Sunrise *time.Time `json:"sunrise,omitempty"`
	Sunset  *time.Time `json:"sunset,omitempty"`

	CivilDawn        *time.Time `json:"civil_dawn,omitempty"`
	CivilDusk        *time.Time `json:"civil_dusk,omitempty"`
	NauticalDawn     *time.Time `json:"nautical_dawn,omitempty"`
	NauticalDusk     *time.Time `json:"nautical_dusk,omitempty"`
	AstronomicalDawn *time.Time `json:"astronomical_dawn,omitempty"`
	AstronomicalDusk *time.Time `json:"astronomical_dusk,omitempty"`

	// DayLengthSeconds is total time the Sun is above the horizon inside
	// the window, which handles windows where sunset precedes sunrise
	// (a UTC day over a western observer).
	DayLengthSeconds float64 `json:"day_length_seconds"`
}

// ComputeSunTimes computes sunrise/sunset and twilight boundaries for the
// observer's local calendar day containing date.
func ComputeSunTimes(obs transform.Observer, date time.Time, opts Options) SunTimes {
	opts = opts.withDefaults()
	start, end := localDay(obs, date)

	altAt := func(t time.Time) float64 {
		eq, err := ephemeris.Position(ephemeris.Sun, t)
		if err != nil {
			return -90
		}
		return transform.EquatorialToHorizontal(eq, obs, t).AltDeg
	}

	profile := func(t time.Time) (transform.Horizontal, error) {
		eq, err := ephemeris.Position(ephemeris.Sun, t)
		if err != nil {
			return transform.Horizontal{}, err
		}
		return transform.EquatorialToHorizontal(eq, obs, t), nil
	}
	horizon := func(time.Time) float64 { return SunHorizonDeg }
	bt := computeBodyTimes(profile, horizon, start, end, opts)

	st := SunTimes{Status: bt.Status}
	for _, ev := range bt.Events {
		t := ev.Time
		switch ev.Kind {
		case EventRise:
			if st.Sunrise == nil {
				st.Sunrise = &t
			}
		case EventSet:
			if st.Sunset == nil {
				st.Sunset = &t
			}
		}
	}

	steps := int(end.Sub(start) / opts.SampleStep)
	if steps < 2 {
		steps = 2
	}
	tier := func(offset float64) (up, down *time.Time) {
		f := func(t time.Time) float64 { return altAt(t) - offset }
		if res := solver.FindCrossing(f, start, end, solver.CrossUp, steps, opts.RefineTol); res.OK {
			t := res.Time
			up = &t
		}
		if res := solver.FindCrossing(f, start, end, solver.CrossDown, steps, opts.RefineTol); res.OK {
			t := res.Time
			down = &t
		}
		return up, down
	}
	st.CivilDawn, st.CivilDusk = tier(CivilTwilightDeg)
	st.NauticalDawn, st.NauticalDusk = tier(NauticalTwilightDeg)
	st.AstronomicalDawn, st.AstronomicalDusk = tier(AstronomicalTwilightDeg)

	st.DayLengthSeconds = dayLength(st, bt.Status, start, end).Seconds()
	return st
}

// dayLength totals the Sun-above-horizon time inside [start, end).
func dayLength(st SunTimes, status Status, start, end time.Time) time.Duration {
	switch {
	case status == StatusAlwaysUp:
		return end.Sub(start)
	case status == StatusAlwaysDown:
		return 0
	case st.Sunrise != nil && st.Sunset != nil:
		if st.Sunset.After(*st.Sunrise) {
			return st.Sunset.Sub(*st.Sunrise)
		}
		// Sun was already up at the window start: daylight is the leading
		// stretch to sunset plus the trailing stretch after sunrise.
		return st.Sunset.Sub(start) + end.Sub(*st.Sunrise)
	case st.Sunrise != nil:
		return end.Sub(*st.Sunrise)
	case st.Sunset != nil:
		return st.Sunset.Sub(start)
	default:
		return 0
	}
}
