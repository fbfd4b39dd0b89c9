// Package ephemeris computes apparent geocentric equatorial coordinates
// (right ascension, declination) and distance for the Sun, the Moon, and the
// major planets.
//
// Method: low-order series. Planets use the JPL approximate Keplerian
// elements (each element a linear polynomial in Julian centuries since
// J2000.0) with Kepler's equation solved numerically; the Sun uses the
// mean-longitude / equation-of-center expansion; the Moon uses truncated
// Meeus Ch. 47 series for longitude, latitude, and distance.
//
// Accuracy: roughly one arcminute for the planets and Sun, a few arcminutes
// for the Moon, inside the element fit range 1800–2050. That is adequate for
// visibility and rise/set work, not for precision ephemerides. Outside the
// fit range positions are still computed from the same polynomials but the
// result carries ConfidenceReduced so callers can flag lower-trust output.
//
// All functions are pure: the instant is always an explicit argument.
package ephemeris

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
)

// AU is one astronomical unit in kilometers.
const AU = 149597870.7

// Element fit range. Positions outside carry ConfidenceReduced.
const (
	ValidFromYear = 1800
	ValidToYear   = 2050
)

// Body identifies a solar-system body with a closed-form ephemeris.
// Satellites are not bodies: they are propagated from element sets by the
// propagation package, and the two kinds share no behavior beyond producing
// a position at an instant.
type Body int

const (
	Sun Body = iota
	Moon
	Mercury
	Venus
	Mars
	Jupiter
	Saturn
	Uranus
	Neptune
)

var bodyNames = map[Body]string{
	Sun:     "Sun",
	Moon:    "Moon",
	Mercury: "Mercury",
	Venus:   "Venus",
	Mars:    "Mars",
	Jupiter: "Jupiter",
	Saturn:  "Saturn",
	Uranus:  "Uranus",
	Neptune: "Neptune",
}

func (b Body) String() string {
	if name, ok := bodyNames[b]; ok {
		return name
	}
	return fmt.Sprintf("Body(%d)", int(b))
}

// ParseBody resolves a case-insensitive body name.
func ParseBody(s string) (Body, error) {
	for b, name := range bodyNames {
		if strings.EqualFold(name, s) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("unknown body %q", s)
}

// Planets returns the planets Mercury through Neptune (Earth excluded)
// in distance order.
func Planets() []Body {
	return []Body{Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune}
}

// AllBodies returns every supported body: Sun, Moon, then the planets.
func AllBodies() []Body {
	return []Body{Sun, Moon, Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune}
}

// Confidence indicates how much the caller should trust a computed position.
type Confidence int

const (
	// ConfidenceHigh: the instant is inside the element fit range.
	ConfidenceHigh Confidence = iota
	// ConfidenceReduced: outside the fit range; the position is a coarser
	// extrapolation and should be flagged, not trusted silently.
	ConfidenceReduced
)

func (c Confidence) String() string {
	if c == ConfidenceReduced {
		return "reduced"
	}
	return "high"
}

// Equatorial is an apparent geocentric equatorial position.
type Equatorial struct {
	RADeg      float64    `json:"ra_deg"`  // right ascension, [0, 360)
	DecDeg     float64    `json:"dec_deg"` // declination, [-90, 90]
	DistanceAU float64    `json:"distance_au"`
	DistanceKm float64    `json:"distance_km"`
	Confidence Confidence `json:"-"`
}

// Position returns the apparent geocentric equatorial coordinates and
// distance of a body at the given instant. It never hard-fails for
// out-of-range dates; those results carry ConfidenceReduced. The only error
// case is Kepler-equation non-convergence, which the element fit makes
// effectively unreachable for planetary eccentricities.
func Position(body Body, t time.Time) (Equatorial, error) {
	jd := astrotime.JulianDate(t)

	var eq Equatorial
	var err error
	switch body {
	case Sun:
		eq = sunPosition(jd)
	case Moon:
		eq = moonPosition(jd)
	case Mercury, Venus, Mars, Jupiter, Saturn, Uranus, Neptune:
		eq, err = planetPosition(body, jd)
		if err != nil {
			return Equatorial{}, fmt.Errorf("%s at %s: %w", body, t.UTC().Format(time.RFC3339), err)
		}
	default:
		return Equatorial{}, fmt.Errorf("unsupported body %v", body)
	}

	eq.Confidence = confidenceFor(t)
	return eq, nil
}

func confidenceFor(t time.Time) Confidence {
	year := t.UTC().Year()
	if year < ValidFromYear || year > ValidToYear {
		return ConfidenceReduced
	}
	return ConfidenceHigh
}

// meanObliquityDeg returns the mean obliquity of the ecliptic in degrees
// (IAU polynomial) for Julian centuries T since J2000.0.
func meanObliquityDeg(T float64) float64 {
	return 23.439291111 - 0.013004167*T - 0.00000164*T*T + 0.000000504*T*T*T
}

// eclipticToEquatorial converts ecliptic coordinates (degrees) to equatorial
// RA/dec (degrees) for obliquity epsilon (degrees). RA is wrapped to [0, 360).
func eclipticToEquatorial(lambdaDeg, betaDeg, epsilonDeg float64) (raDeg, decDeg float64) {
	lam := astrotime.Deg2Rad(lambdaDeg)
	bet := astrotime.Deg2Rad(betaDeg)
	eps := astrotime.Deg2Rad(epsilonDeg)

	sinDec := math.Sin(bet)*math.Cos(eps) + math.Cos(bet)*math.Sin(eps)*math.Sin(lam)
	dec := math.Asin(clamp1(sinDec))

	y := math.Sin(lam)*math.Cos(eps) - math.Tan(bet)*math.Sin(eps)
	x := math.Cos(lam)
	ra := math.Atan2(y, x)

	return astrotime.NormalizeDeg(astrotime.Rad2Deg(ra)), astrotime.Rad2Deg(dec)
}

// eclipticVecToEquatorial rotates a geocentric ecliptic vector into the
// equatorial frame and returns RA/dec in degrees plus the vector norm.
func eclipticVecToEquatorial(x, y, z, epsilonDeg float64) (raDeg, decDeg, r float64) {
	eps := astrotime.Deg2Rad(epsilonDeg)
	cosE := math.Cos(eps)
	sinE := math.Sin(eps)

	xe := x
	ye := y*cosE - z*sinE
	ze := y*sinE + z*cosE

	r = math.Sqrt(xe*xe + ye*ye + ze*ze)
	raDeg = astrotime.NormalizeDeg(astrotime.Rad2Deg(math.Atan2(ye, xe)))
	decDeg = astrotime.Rad2Deg(math.Asin(clamp1(ze / r)))
	return raDeg, decDeg, r
}

// AngularSeparationDeg returns the great-circle angle between two equatorial
// positions in degrees, using the haversine form for numerical stability at
// small separations.
func AngularSeparationDeg(a, b Equatorial) float64 {
	ra1 := astrotime.Deg2Rad(a.RADeg)
	dec1 := astrotime.Deg2Rad(a.DecDeg)
	ra2 := astrotime.Deg2Rad(b.RADeg)
	dec2 := astrotime.Deg2Rad(b.DecDeg)

	sinDec := math.Sin((dec2 - dec1) / 2)
	sinRA := math.Sin((ra2 - ra1) / 2)
	h := sinDec*sinDec + math.Cos(dec1)*math.Cos(dec2)*sinRA*sinRA
	return astrotime.Rad2Deg(2 * math.Asin(clamp1(math.Sqrt(h))))
}

func clamp1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
