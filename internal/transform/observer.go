// Package transform converts between the coordinate frames the engine uses:
// geodetic observer positions, equatorial (RA/dec) and horizontal (alt/az)
// sky coordinates, and the TEME/ECEF chain for satellite positions.
//
// Everything here is pure math on explicit arguments. The Observer type is
// the shared anchor: it precomputes ECEF once so both the sky transform and
// the satellite look-angle path can reuse it across many lookups.
package transform

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// WGS-84 ellipsoid parameters.
const (
	wgs84A  = 6378137.0             // semi-major axis (meters)
	wgs84F  = 1.0 / 298.257223563   // flattening
	wgs84E2 = wgs84F * (2 - wgs84F) // first eccentricity squared
)

// ErrInvalidObserver reports an observer location outside the accepted
// ranges. It aborts the whole query; there is no degraded mode for a
// nonsense location.
var ErrInvalidObserver = errors.New("invalid observer")

// Observer is a ground location with its timezone and precomputed ECEF
// coordinates. Construct with NewObserver; treat as read-only afterwards.
type Observer struct {
	LatDeg float64 `json:"lat_deg"` // geodetic latitude, [-90, 90]
	LonDeg float64 `json:"lon_deg"` // east-positive longitude, [-180, 180]
	ElevM  float64 `json:"elev_m"`  // meters above the WGS-84 ellipsoid

	// TZ is the observer's local zone, used to bound "tonight" windows.
	// All frame math stays in UTC.
	TZ *time.Location `json:"-"`

	ECEFx, ECEFy, ECEFz float64 `json:"-"` // precomputed ECEF (meters)
}

// NewObserver validates a geodetic location and resolves its timezone.
// tz is an IANA zone name; empty means UTC. Any out-of-range field or
// unknown zone returns an error wrapping ErrInvalidObserver.
func NewObserver(latDeg, lonDeg, elevM float64, tz string) (Observer, error) {
	loc := time.UTC
	if tz != "" {
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return Observer{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidObserver, tz, err)
		}
	}

	obs := Observer{
		LatDeg: latDeg,
		LonDeg: lonDeg,
		ElevM:  elevM,
		TZ:     loc,
	}
	if err := obs.Validate(); err != nil {
		return Observer{}, err
	}
	obs.ECEFx, obs.ECEFy, obs.ECEFz = geodeticToECEF(latDeg, lonDeg, elevM)
	return obs, nil
}

// Validate re-checks the observer's fields. Observers built through
// NewObserver always pass; hand-assembled ones may not.
func (o Observer) Validate() error {
	if math.IsNaN(o.LatDeg) || o.LatDeg < -90 || o.LatDeg > 90 {
		return fmt.Errorf("%w: latitude %.4f outside [-90, 90]", ErrInvalidObserver, o.LatDeg)
	}
	if math.IsNaN(o.LonDeg) || o.LonDeg < -180 || o.LonDeg > 180 {
		return fmt.Errorf("%w: longitude %.4f outside [-180, 180]", ErrInvalidObserver, o.LonDeg)
	}
	if math.IsNaN(o.ElevM) || o.ElevM < -500 {
		return fmt.Errorf("%w: elevation %.1f m below -500", ErrInvalidObserver, o.ElevM)
	}
	if o.TZ == nil {
		return fmt.Errorf("%w: timezone not resolved", ErrInvalidObserver)
	}
	return nil
}

// Position returns the observer's precomputed ECEF coordinates in meters.
func (o Observer) Position() (x, y, z float64) {
	return o.ECEFx, o.ECEFy, o.ECEFz
}

// geodeticToECEF converts geodetic coordinates (degrees, meters above the
// ellipsoid) to ECEF meters.
func geodeticToECEF(latDeg, lonDeg, altM float64) (x, y, z float64) {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)

	// Radius of curvature in the prime vertical.
	N := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	x = (N + altM) * cosLat * math.Cos(lon)
	y = (N + altM) * cosLat * math.Sin(lon)
	z = (N*(1-wgs84E2) + altM) * sinLat
	return x, y, z
}
