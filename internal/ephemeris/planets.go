package ephemeris

import (
	"math"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
)

// keplerElements holds one body's approximate Keplerian elements at J2000.0
// plus linear rates per Julian century. Angles in degrees, semi-major axis
// in AU. Source: JPL "Keplerian elements for approximate positions of the
// major planets", 1800 AD – 2050 AD fit.
type keplerElements struct {
	a     float64 // semi-major axis, AU
	e     float64 // eccentricity
	i     float64 // inclination, deg
	l     float64 // mean longitude, deg
	wbar  float64 // longitude of perihelion, deg
	omega float64 // longitude of ascending node, deg

	aDot     float64 // AU/century
	eDot     float64 // 1/century
	iDot     float64 // deg/century
	lDot     float64 // deg/century
	wbarDot  float64 // deg/century
	omegaDot float64 // deg/century
}

var planetElements = map[Body]keplerElements{
	Mercury: {
		a: 0.38709927, e: 0.20563593, i: 7.00497902, l: 252.25032350, wbar: 77.45779628, omega: 48.33076593,
		aDot: 0.00000037, eDot: 0.00001906, iDot: -0.00594749, lDot: 149472.67411175, wbarDot: 0.16047689, omegaDot: -0.12534081,
	},
	Venus: {
		a: 0.72333566, e: 0.00677672, i: 3.39467605, l: 181.97909950, wbar: 131.60246718, omega: 76.67984255,
		aDot: 0.00000390, eDot: -0.00004107, iDot: -0.00078890, lDot: 58517.81538729, wbarDot: 0.00268329, omegaDot: -0.27769418,
	},
	Mars: {
		a: 1.52371034, e: 0.09339410, i: 1.84969142, l: -4.55343205, wbar: -23.94362959, omega: 49.55953891,
		aDot: 0.00001847, eDot: 0.00007882, iDot: -0.00813131, lDot: 19140.30268499, wbarDot: 0.44441088, omegaDot: -0.29257343,
	},
	Jupiter: {
		a: 5.20288700, e: 0.04838624, i: 1.30439695, l: 34.39644051, wbar: 14.72847983, omega: 100.47390909,
		aDot: -0.00011607, eDot: -0.00013253, iDot: -0.00183714, lDot: 3034.74612775, wbarDot: 0.21252668, omegaDot: 0.20469106,
	},
	Saturn: {
		a: 9.53667594, e: 0.05386179, i: 2.48599187, l: 49.95424423, wbar: 92.59887831, omega: 113.66242448,
		aDot: -0.00125060, eDot: -0.00050991, iDot: 0.00193609, lDot: 1222.49362201, wbarDot: -0.41897216, omegaDot: -0.28867794,
	},
	Uranus: {
		a: 19.18916464, e: 0.04725744, i: 0.77263783, l: 313.23810451, wbar: 170.95427630, omega: 74.01692503,
		aDot: -0.00196176, eDot: -0.00004397, iDot: -0.00242939, lDot: 428.48202785, wbarDot: 0.40805281, omegaDot: 0.04240589,
	},
	Neptune: {
		a: 30.06992276, e: 0.00859048, i: 1.77004347, l: -55.12002969, wbar: 44.96476227, omega: 131.78422574,
		aDot: 0.00026291, eDot: 0.00005105, iDot: 0.00035372, lDot: 218.45945325, wbarDot: -0.32241464, omegaDot: -0.00508664,
	},
}

// earthElements is the Earth-Moon barycenter from the same fit. Close enough
// to the Earth's center for arcminute work; used to convert heliocentric
// planet positions to geocentric.
var earthElements = keplerElements{
	a: 1.00000261, e: 0.01671123, i: -0.00001531, l: 100.46457166, wbar: 102.93768193, omega: 0.0,
	aDot: 0.00000562, eDot: -0.00004392, iDot: -0.01294668, lDot: 35999.37244981, wbarDot: 0.32327364, omegaDot: 0.0,
}

// heliocentricEcliptic returns a body's heliocentric position in the J2000
// ecliptic frame (AU) at T Julian centuries since J2000.0.
func heliocentricEcliptic(el keplerElements, T float64) (x, y, z float64, err error) {
	a := el.a + el.aDot*T
	e := el.e + el.eDot*T
	iDeg := el.i + el.iDot*T
	lDeg := el.l + el.lDot*T
	wbarDeg := el.wbar + el.wbarDot*T
	omegaDeg := el.omega + el.omegaDot*T

	// Argument of perihelion and mean anomaly from the longitudes.
	wDeg := wbarDeg - omegaDeg
	mDeg := astrotime.NormalizeDeg(lDeg - wbarDeg)
	if mDeg > 180 {
		mDeg -= 360 // keep the Danby starter near the branch M is on
	}

	E, err := solveKepler(astrotime.Deg2Rad(mDeg), e)
	if err != nil {
		return 0, 0, 0, err
	}

	// Position in the orbital plane, perihelion along +x.
	xp := a * (math.Cos(E) - e)
	yp := a * math.Sqrt(1-e*e) * math.Sin(E)

	// Rotate orbital-plane coordinates into the ecliptic frame:
	// R3(-Ω) · R1(-i) · R3(-ω).
	cosW := math.Cos(astrotime.Deg2Rad(wDeg))
	sinW := math.Sin(astrotime.Deg2Rad(wDeg))
	cosO := math.Cos(astrotime.Deg2Rad(omegaDeg))
	sinO := math.Sin(astrotime.Deg2Rad(omegaDeg))
	cosI := math.Cos(astrotime.Deg2Rad(iDeg))
	sinI := math.Sin(astrotime.Deg2Rad(iDeg))

	x = (cosW*cosO-sinW*sinO*cosI)*xp + (-sinW*cosO-cosW*sinO*cosI)*yp
	y = (cosW*sinO+sinW*cosO*cosI)*xp + (-sinW*sinO+cosW*cosO*cosI)*yp
	z = sinW*sinI*xp + cosW*sinI*yp
	return x, y, z, nil
}

// planetPosition computes a planet's apparent geocentric equatorial position
// by differencing heliocentric ecliptic vectors of the planet and the Earth.
func planetPosition(body Body, jd float64) (Equatorial, error) {
	T := astrotime.JulianCenturies(jd)

	px, py, pz, err := heliocentricEcliptic(planetElements[body], T)
	if err != nil {
		return Equatorial{}, err
	}
	ex, ey, ez, err := heliocentricEcliptic(earthElements, T)
	if err != nil {
		return Equatorial{}, err
	}

	gx := px - ex
	gy := py - ey
	gz := pz - ez

	ra, dec, r := eclipticVecToEquatorial(gx, gy, gz, meanObliquityDeg(T))

	return Equatorial{
		RADeg:      ra,
		DecDeg:     dec,
		DistanceAU: r,
		DistanceKm: r * AU,
	}, nil
}
