// Package astrotime provides the time-scale plumbing shared by every
// calculator in the engine: civil time ↔ Julian Date, Julian centuries since
// J2000.0, and Greenwich/local mean sidereal time.
//
// All functions are pure. The instant is always an explicit argument and is
// normalized to UTC internally; nothing here reads an ambient clock.
package astrotime

import (
	"math"
	"time"
)

// J2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const J2000 = 2451545.0

// unixEpochJD is the Julian Date of the Unix epoch (January 1, 1970, 00:00:00 UTC).
const unixEpochJD = 2440587.5

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// JulianDate converts a time.Time to Julian Date.
// The input is normalized to UTC first. Uses the standard astronomical
// algorithm valid for dates after March 1, 4801 BC.
func JulianDate(t time.Time) float64 {
	t = t.UTC()

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	h := float64(t.Hour())
	min := float64(t.Minute())
	s := float64(t.Second()) + float64(t.Nanosecond())/1e9

	// Adjust year/month for Jan/Feb (treat as months 13/14 of previous year).
	if m <= 2 {
		y -= 1
		m += 12
	}

	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + B - 1524.5
	jd += (h + min/60.0 + s/3600.0) / 24.0

	return jd
}

// FromJulianDate converts a Julian Date back to a UTC time.Time.
// Inverse of JulianDate to within ~10 microseconds (float64 day resolution).
func FromJulianDate(jd float64) time.Time {
	sec := (jd - unixEpochJD) * 86400.0
	whole := math.Floor(sec)
	frac := sec - whole
	return time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
}

// JulianCenturies returns Julian centuries elapsed since J2000.0 for the
// given Julian Date. Negative before the epoch.
func JulianCenturies(jd float64) float64 {
	return (jd - J2000) / 36525.0
}

// GMST calculates Greenwich Mean Sidereal Time in radians for a given UTC time.
// Uses the IAU-82 model as described in Vallado "Fundamentals of Astrodynamics".
//
// Formula (Vallado Eq 3-47):
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// where T is Julian centuries of UT1 from J2000.0, result is in seconds of time.
func GMST(t time.Time) float64 {
	return gmstFromJD(JulianDate(t))
}

// GMSTDeg returns Greenwich mean sidereal time in degrees [0, 360) for a
// Julian Date.
func GMSTDeg(jd float64) float64 {
	return Rad2Deg(gmstFromJD(jd))
}

// LocalSiderealTimeDeg returns the local mean sidereal time in degrees
// [0, 360) for a Julian Date and an east-positive longitude in degrees.
func LocalSiderealTimeDeg(jd, lonDeg float64) float64 {
	return NormalizeDeg(GMSTDeg(jd) + lonDeg)
}

func gmstFromJD(jd float64) float64 {
	tUT1 := JulianCenturies(jd)

	// GMST in seconds of time.
	// 876600h = 876600 * 3600 = 3155760000 seconds.
	gmstSec := 67310.54841 +
		(3155760000.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	// Normalize to [0, 86400) seconds, then convert to radians.
	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}

// NormalizeDeg wraps an angle to the range [0, 360).
func NormalizeDeg(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// NormalizeRad wraps an angle to the range [0, 2π).
func NormalizeRad(rad float64) float64 {
	rad = math.Mod(rad, 2*math.Pi)
	if rad < 0 {
		rad += 2 * math.Pi
	}
	return rad
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
