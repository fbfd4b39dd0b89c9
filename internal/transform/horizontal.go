package transform

import (
	"math"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
)

// zenithToleranceDeg is how close to the zenith/nadir the altitude must be
// before azimuth loses meaning and the Singular convention applies.
const zenithToleranceDeg = 1e-9

// Horizontal is a topocentric horizontal position.
type Horizontal struct {
	AltDeg float64 `json:"alt_deg"` // altitude above the horizon, [-90, 90]
	AzDeg  float64 `json:"az_deg"`  // azimuth from north through east, [0, 360)

	// Singular is set when the body is at the zenith or nadir, where
	// azimuth is undefined. AzDeg is 0 by convention then; never NaN.
	Singular bool `json:"singular,omitempty"`
}

// EquatorialToHorizontal converts an equatorial position to the observer's
// horizontal frame at the given instant.
//
// The hour angle is H = LST - RA; then
//
//	sin(alt) = sin(dec)·sin(lat) + cos(dec)·cos(lat)·cos(H)
//
// and azimuth comes from the north/east components of the direction vector,
// measured from north through east.
func EquatorialToHorizontal(eq ephemeris.Equatorial, obs Observer, t time.Time) Horizontal {
	jd := astrotime.JulianDate(t)
	lstDeg := astrotime.LocalSiderealTimeDeg(jd, obs.LonDeg)

	h := astrotime.Deg2Rad(lstDeg - eq.RADeg)
	dec := astrotime.Deg2Rad(eq.DecDeg)
	lat := astrotime.Deg2Rad(obs.LatDeg)

	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(h)
	altDeg := astrotime.Rad2Deg(math.Asin(clampUnit(sinAlt)))

	if 90-math.Abs(altDeg) < zenithToleranceDeg {
		return Horizontal{AltDeg: altDeg, AzDeg: 0, Singular: true}
	}

	// Direction vector in the horizon frame: north, east components.
	north := math.Cos(lat)*math.Sin(dec) - math.Sin(lat)*math.Cos(dec)*math.Cos(h)
	east := -math.Cos(dec) * math.Sin(h)

	azDeg := astrotime.NormalizeDeg(astrotime.Rad2Deg(math.Atan2(east, north)))
	return Horizontal{AltDeg: altDeg, AzDeg: azDeg}
}

// HorizontalToEquatorial inverts EquatorialToHorizontal for the same
// observer and instant, recovering RA/dec from alt/az. Distance is not
// recoverable from angles and is left zero.
func HorizontalToEquatorial(hz Horizontal, obs Observer, t time.Time) ephemeris.Equatorial {
	jd := astrotime.JulianDate(t)
	lstDeg := astrotime.LocalSiderealTimeDeg(jd, obs.LonDeg)

	alt := astrotime.Deg2Rad(hz.AltDeg)
	az := astrotime.Deg2Rad(hz.AzDeg)
	lat := astrotime.Deg2Rad(obs.LatDeg)

	sinDec := math.Sin(lat)*math.Sin(alt) + math.Cos(lat)*math.Cos(alt)*math.Cos(az)
	dec := math.Asin(clampUnit(sinDec))

	// Hour angle from the equatorial-frame components.
	y := -math.Cos(alt) * math.Sin(az)
	x := math.Cos(lat)*math.Sin(alt) - math.Sin(lat)*math.Cos(alt)*math.Cos(az)
	h := math.Atan2(y, x)

	return ephemeris.Equatorial{
		RADeg:  astrotime.NormalizeDeg(lstDeg - astrotime.Rad2Deg(h)),
		DecDeg: astrotime.Rad2Deg(dec),
	}
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
