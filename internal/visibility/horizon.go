package visibility

import (
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
)

// Horizon conventions. An event fires when the body's geometric center
// crosses the offset altitude, so refraction and size corrections are baked
// into the offset rather than the ephemeris.
const (
	// RefractionDeg is standard atmospheric refraction at the horizon
	// (34 arcminutes); point sources rise/set at -RefractionDeg.
	RefractionDeg = 0.5667

	// SunHorizonDeg adds the solar semidiameter: the NOAA 90.833 deg
	// zenith convention for sunrise/sunset.
	SunHorizonDeg = -0.8333

	// Twilight thresholds on the Sun's center, no refraction term.
	CivilTwilightDeg        = -6.0
	NauticalTwilightDeg     = -12.0
	AstronomicalTwilightDeg = -18.0
)

// horizonOffsetDeg returns the altitude a body's center crosses at rise and
// set. The Moon's parallax exceeds refraction, so unlike everything else its
// offset is positive and varies with distance (Meeus: 0.7275·parallax - 34').
func horizonOffsetDeg(body ephemeris.Body, t time.Time) float64 {
	switch body {
	case ephemeris.Sun:
		return SunHorizonDeg
	case ephemeris.Moon:
		jd := astrotime.JulianDate(t)
		return 0.7275*ephemeris.MoonHorizontalParallaxDeg(jd) - RefractionDeg
	default:
		return -RefractionDeg
	}
}
