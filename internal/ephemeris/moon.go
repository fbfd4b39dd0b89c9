package ephemeris

import (
	"math"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
)

// moonMeanDistanceKm is the average Earth-Moon distance.
const moonMeanDistanceKm = 384400.0

// moonPosition computes the Moon's geocentric equatorial position from
// truncated Meeus Ch. 47 series: the dominant longitude, latitude, and
// distance terms. Good to a few arcminutes, which rise/set tolerances
// absorb easily.
func moonPosition(jd float64) Equatorial {
	T := astrotime.JulianCenturies(jd)

	lambda := moonLongitudeDeg(T)
	beta := moonLatitudeDeg(T)
	distKm := moonDistanceKm(T)

	ra, dec := eclipticToEquatorial(lambda, beta, meanObliquityDeg(T))

	return Equatorial{
		RADeg:      ra,
		DecDeg:     dec,
		DistanceAU: distKm / AU,
		DistanceKm: distKm,
	}
}

// MoonEclipticLongitudeDeg returns the Moon's ecliptic longitude in degrees
// [0, 360) for a Julian Date. Exported for the moon-phase elongation
// computation.
func MoonEclipticLongitudeDeg(jd float64) float64 {
	return moonLongitudeDeg(astrotime.JulianCenturies(jd))
}

// MoonDistanceKm returns the Earth-Moon distance in kilometers for a
// Julian Date.
func MoonDistanceKm(jd float64) float64 {
	return moonDistanceKm(astrotime.JulianCenturies(jd))
}

// Fundamental lunar arguments (degrees), Meeus Ch. 47.

func moonMeanLongitudeDeg(T float64) float64 {
	return 218.3164477 + 481267.88123421*T - 0.0015786*T*T +
		T*T*T/538841 - T*T*T*T/65194000
}

func moonMeanElongationDeg(T float64) float64 {
	return 297.8501921 + 445267.1114034*T - 0.0018819*T*T +
		T*T*T/545868 - T*T*T*T/113065000
}

func moonMeanAnomalyDeg(T float64) float64 {
	return 134.9633964 + 477198.8675055*T + 0.0087414*T*T +
		T*T*T/69699 - T*T*T*T/14712000
}

func moonArgumentOfLatitudeDeg(T float64) float64 {
	return 93.2720950 + 483202.0175233*T - 0.0036539*T*T -
		T*T*T/3526000 + T*T*T*T/863310000
}

// moonLongitudeDeg applies the dominant periodic terms to the mean longitude.
func moonLongitudeDeg(T float64) float64 {
	l := moonMeanLongitudeDeg(T)
	d := astrotime.Deg2Rad(astrotime.NormalizeDeg(moonMeanElongationDeg(T)))
	mp := astrotime.Deg2Rad(astrotime.NormalizeDeg(moonMeanAnomalyDeg(T)))

	lambda := l +
		6.289*math.Sin(mp) +
		1.274*math.Sin(2*d-mp) +
		0.658*math.Sin(2*d) +
		0.214*math.Sin(2*mp) +
		0.110*math.Sin(d)

	return astrotime.NormalizeDeg(lambda)
}

// moonLatitudeDeg applies the dominant terms from Meeus Table 47.B.
func moonLatitudeDeg(T float64) float64 {
	f := astrotime.Deg2Rad(astrotime.NormalizeDeg(moonArgumentOfLatitudeDeg(T)))
	d := astrotime.Deg2Rad(astrotime.NormalizeDeg(moonMeanElongationDeg(T)))
	mp := astrotime.Deg2Rad(astrotime.NormalizeDeg(moonMeanAnomalyDeg(T)))

	return 5.128*math.Sin(f) +
		0.2806*math.Sin(mp+f) +
		0.2777*math.Sin(mp-f) +
		0.1732*math.Sin(2*d-f)
}

// moonDistanceKm applies the dominant cosine terms to the mean distance.
func moonDistanceKm(T float64) float64 {
	d := astrotime.Deg2Rad(astrotime.NormalizeDeg(moonMeanElongationDeg(T)))
	mp := astrotime.Deg2Rad(astrotime.NormalizeDeg(moonMeanAnomalyDeg(T)))

	return 385000.56 -
		20905.0*math.Cos(mp) -
		3699.0*math.Cos(2*d-mp) -
		2956.0*math.Cos(2*d) -
		570.0*math.Cos(2*mp) -
		246.0*math.Cos(2*d+mp)
}

// MoonHorizontalParallaxDeg returns the Moon's equatorial horizontal
// parallax in degrees for a Julian Date. Used to build the moonrise horizon
// offset.
func MoonHorizontalParallaxDeg(jd float64) float64 {
	const earthEquatorialRadiusKm = 6378.14
	dist := MoonDistanceKm(jd)
	if dist <= earthEquatorialRadiusKm {
		return 1.0 // nonsense input; clamp to a safe default
	}
	return astrotime.Rad2Deg(math.Asin(earthEquatorialRadiusKm / dist))
}

// MoonAngularDiameterDeg returns the Moon's apparent angular diameter in
// degrees for a Julian Date, scaled from the mean diameter by the inverse
// distance.
func MoonAngularDiameterDeg(jd float64) float64 {
	const meanDiameterDeg = 0.5181
	return meanDiameterDeg * moonMeanDistanceKm / MoonDistanceKm(jd)
}
