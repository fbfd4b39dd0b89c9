package ephemeris

import (
	"math"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
)

// sunPosition computes the Sun's apparent geocentric equatorial position
// from the mean-longitude / equation-of-center expansion (Meeus Ch. 25).
// The apparent longitude includes the standard nutation/aberration
// correction through the ascending-node term.
func sunPosition(jd float64) Equatorial {
	T := astrotime.JulianCenturies(jd)

	lambda := sunApparentLongitudeDeg(T)

	// Correct the obliquity for the same nutation term used in lambda.
	omega := 125.04 - 1934.136*T
	eps := meanObliquityDeg(T) + 0.00256*math.Cos(astrotime.Deg2Rad(omega))

	ra, dec := eclipticToEquatorial(lambda, 0, eps)

	// Radius vector from the eccentricity and true anomaly.
	m := astrotime.Deg2Rad(sunMeanAnomalyDeg(T))
	e := 0.016708634 - 0.000042037*T - 0.0000001267*T*T
	nu := m + astrotime.Deg2Rad(sunEquationOfCenterDeg(T))
	rAU := 1.000001018 * (1 - e*e) / (1 + e*math.Cos(nu))

	return Equatorial{
		RADeg:      ra,
		DecDeg:     dec,
		DistanceAU: rAU,
		DistanceKm: rAU * AU,
	}
}

// SunEclipticLongitudeDeg returns the Sun's apparent ecliptic longitude in
// degrees [0, 360) for a Julian Date. Exported for the moon-phase
// elongation computation.
func SunEclipticLongitudeDeg(jd float64) float64 {
	return sunApparentLongitudeDeg(astrotime.JulianCenturies(jd))
}

func sunMeanLongitudeDeg(T float64) float64 {
	return astrotime.NormalizeDeg(280.46646 + 36000.76983*T + 0.0003032*T*T)
}

func sunMeanAnomalyDeg(T float64) float64 {
	return astrotime.NormalizeDeg(357.52911 + 35999.05029*T - 0.0001537*T*T)
}

func sunEquationOfCenterDeg(T float64) float64 {
	m := astrotime.Deg2Rad(sunMeanAnomalyDeg(T))
	return (1.914602-0.004817*T-0.000014*T*T)*math.Sin(m) +
		(0.019993-0.000101*T)*math.Sin(2*m) +
		0.000289*math.Sin(3*m)
}

func sunApparentLongitudeDeg(T float64) float64 {
	trueLong := sunMeanLongitudeDeg(T) + sunEquationOfCenterDeg(T)
	omega := 125.04 - 1934.136*T
	apparent := trueLong - 0.00569 - 0.00478*math.Sin(astrotime.Deg2Rad(omega))
	return astrotime.NormalizeDeg(apparent)
}
