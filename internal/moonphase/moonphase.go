// Package moonphase reports the Moon's illumination state: phase name,
// illuminated fraction, lunation age, and the next new and full moon
// instants. Everything derives from the geocentric ecliptic elongation
// between the Moon and the Sun.
package moonphase

import (
	"math"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/solver"
)

// SynodicMonthDays is the mean length of a lunation.
const SynodicMonthDays = 29.530588853

// searchWindow bounds the lookahead for the next new/full moon. One
// synodic month plus slack always contains the next crossing.
const searchWindow = 32 * 24 * time.Hour

var phaseNames = [8]string{
	"New Moon",
	"Waxing Crescent",
	"First Quarter",
	"Waxing Gibbous",
	"Full Moon",
	"Waning Gibbous",
	"Last Quarter",
	"Waning Crescent",
}

// Phase describes the Moon's appearance at a single instant.
type Phase struct {
	// Illumination is the sunlit fraction of the visible disc,
	// 0 at new moon and 1 at full.
	Illumination float64 `json:"illumination"`
	// ElongationDeg is the Moon's ecliptic longitude minus the
	// Sun's, normalized to [0, 360).
	ElongationDeg float64 `json:"elongation_deg"`
	// PhaseAngleDeg is the Sun-Moon-Earth angle, 180 deg at new
	// moon and 0 at full.
	PhaseAngleDeg      float64   `json:"phase_angle_deg"`
	Name               string    `json:"name"`
	AgeDays            float64   `json:"age_days"`
	Waxing             bool      `json:"waxing"`
	DistanceKm         float64   `json:"distance_km"`
	AngularDiameterDeg float64   `json:"angular_diameter_deg"`
	NextNewMoon        time.Time `json:"next_new_moon"`
	NextFullMoon       time.Time `json:"next_full_moon"`
}

// Compute derives the phase at t. Illumination is (1 - cos E) / 2 for
// elongation E; phase names use symmetric 45 deg buckets so "New Moon"
// covers [-22.5, 22.5) around zero elongation.
func Compute(t time.Time) Phase {
	jd := astrotime.JulianDate(t)
	elong := astrotime.NormalizeDeg(ephemeris.MoonEclipticLongitudeDeg(jd) - ephemeris.SunEclipticLongitudeDeg(jd))

	return Phase{
		Illumination:       illuminationFromElongation(elong),
		ElongationDeg:      elong,
		PhaseAngleDeg:      math.Abs(180 - elong),
		Name:               phaseName(elong),
		AgeDays:            elong / 360 * SynodicMonthDays,
		Waxing:             elong < 180,
		DistanceKm:         ephemeris.MoonDistanceKm(jd),
		AngularDiameterDeg: ephemeris.MoonAngularDiameterDeg(jd),
		NextNewMoon:        nextCrossing(t, solver.CrossUp),
		NextFullMoon:       nextCrossing(t, solver.CrossDown),
	}
}

// Illumination returns only the illuminated fraction at t, skipping
// the next-event searches Compute performs.
func Illumination(t time.Time) float64 {
	jd := astrotime.JulianDate(t)
	return illuminationFromElongation(ephemeris.MoonEclipticLongitudeDeg(jd) - ephemeris.SunEclipticLongitudeDeg(jd))
}

func illuminationFromElongation(elongDeg float64) float64 {
	return (1 - math.Cos(astrotime.Deg2Rad(elongDeg))) / 2
}

func phaseName(elongDeg float64) string {
	idx := int(math.Floor(elongDeg/45+0.5)) % 8
	return phaseNames[idx]
}

// nextCrossing locates the next zero of sin(E): elongation wraps
// upward through 0 at new moon and passes downward through 180 at
// full, so the crossing direction selects the event.
func nextCrossing(t time.Time, dir solver.Crossing) time.Time {
	f := func(u time.Time) float64 {
		jd := astrotime.JulianDate(u)
		e := ephemeris.MoonEclipticLongitudeDeg(jd) - ephemeris.SunEclipticLongitudeDeg(jd)
		return math.Sin(astrotime.Deg2Rad(e))
	}
	res := solver.FindCrossing(f, t, t.Add(searchWindow), dir, 256, time.Second)
	return res.Time.UTC()
}
