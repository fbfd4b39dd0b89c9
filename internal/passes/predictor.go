// Package passes predicts satellite passes over an observer: the
// interval from upward crossing of the elevation floor through the
// downward crossing, with the maximum-elevation instant refined and
// the pass classified for visual observability.
package passes

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/astrotime"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/propagation"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/solver"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/visibility"
)

const (
	coarseStep      = 30 * time.Second
	groundTrackStep = 10 * time.Second
	minPassDuration = 10 * time.Second
	refineTol       = 250 * time.Millisecond

	defaultMaxPasses = 50

	// earthShadowRadiusKm is the radius of the cylindrical Earth-shadow
	// model used for the sunlit test.
	earthShadowRadiusKm = 6371.0
)

// GroundTrackPoint is a sub-satellite position at a specific time
// during a pass.
type GroundTrackPoint struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Elevation float64   `json:"elevation"` // degrees above observer's horizon
}

// PassEvent describes a single satellite pass over an observer.
type PassEvent struct {
	StartTime        time.Time `json:"start_time"`
	MaxElevationTime time.Time `json:"max_elevation_time"`
	EndTime          time.Time `json:"end_time"`
	DurationSeconds  float64   `json:"duration_seconds"`
	MaxElevation     float64   `json:"max_elevation"`
	AzimuthAtMax     float64   `json:"azimuth_at_max"`
	StartAzimuth     float64   `json:"start_azimuth"`
	EndAzimuth       float64   `json:"end_azimuth"`

	// Visual observability, evaluated at the max-elevation instant: a
	// pass is worth watching only when the satellite is in sunlight
	// while the observer is in at least civil darkness.
	Visible      bool   `json:"visible"`
	Sunlit       bool   `json:"sunlit"`
	ObserverDark bool   `json:"observer_dark"`
	Kind         string `json:"kind"`    // night, dawn, dusk, daylight
	Quality      string `json:"quality"` // excellent, good, fair, poor
	// Magnitude is a rough brightness estimate for an ISS-class object,
	// meaningful only when Visible.
	Magnitude float64 `json:"magnitude"`

	GroundTrack []GroundTrackPoint `json:"ground_track"`
}

// SatellitePasses holds the predicted passes for one satellite.
// Per-satellite failures (stale elements, SGP4 init) are recorded in
// Error and never abort the other satellites.
type SatellitePasses struct {
	NORADID int         `json:"norad_id"`
	Name    string      `json:"name,omitempty"`
	Passes  []PassEvent `json:"passes"`
	Error   string      `json:"error,omitempty"`
}

// Request holds the parameters for a pass prediction.
type Request struct {
	Observer     transform.Observer
	Entries      []tle.TLEEntry
	Start        time.Time
	HorizonHours float64
	MinElevation float64 // degrees
	MaxPasses    int     // per satellite; 0 means defaultMaxPasses
}

// Predict computes passes for every requested satellite. Each
// satellite runs in its own goroutine, bounded by a NumCPU semaphore;
// results keep the input order.
func Predict(ctx context.Context, req Request) []SatellitePasses {
	if req.MaxPasses <= 0 {
		req.MaxPasses = defaultMaxPasses
	}

	results := make([]SatellitePasses, len(req.Entries))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, entry := range req.Entries {
		wg.Add(1)
		go func(idx int, e tle.TLEEntry) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = SatellitePasses{
					NORADID: e.NORADID,
					Name:    e.Name,
					Error:   "cancelled",
				}
				return
			}

			passes, err := predictSatellite(ctx, req, e)
			if err != nil {
				results[idx] = SatellitePasses{
					NORADID: e.NORADID,
					Name:    e.Name,
					Error:   err.Error(),
				}
				return
			}
			results[idx] = SatellitePasses{
				NORADID: e.NORADID,
				Name:    e.Name,
				Passes:  passes,
			}
		}(i, entry)
	}

	wg.Wait()
	return results
}

// predictSatellite finds all passes for a single satellite. Elements
// are checked for staleness against the window start before any
// propagation happens.
func predictSatellite(ctx context.Context, req Request, entry tle.TLEEntry) ([]PassEvent, error) {
	if err := propagation.CheckElementAge(entry.Epoch, req.Start); err != nil {
		return nil, err
	}

	prop, err := propagation.NewSGP4Propagator(entry.Line1, entry.Line2, entry.NORADID)
	if err != nil {
		return nil, fmt.Errorf("sgp4 init: %w", err)
	}

	// Relative elevation: positive above the floor. Propagation
	// failures count as far below, so a blowup ends the window rather
	// than poisoning the root finder.
	rel := func(t time.Time) float64 {
		la, _, err := lookAt(prop, req.Observer, t)
		if err != nil {
			return -999
		}
		return la.ElevationDeg - req.MinElevation
	}

	end := req.Start.Add(time.Duration(req.HorizonHours * float64(time.Hour)))
	var passes []PassEvent

	prevBelow := time.Time{}
	t := req.Start
	for t.Before(end) && len(passes) < req.MaxPasses {
		if ctx.Err() != nil {
			return passes, nil
		}

		if rel(t) >= 0 {
			pass, resumeAt, ok := buildPass(ctx, prop, req, rel, prevBelow, t, end)
			if ok && pass.DurationSeconds >= minPassDuration.Seconds() {
				passes = append(passes, pass)
			}
			if resumeAt.Before(t) {
				resumeAt = t
			}
			prevBelow = resumeAt
			t = resumeAt.Add(coarseStep)
			continue
		}

		prevBelow = t
		t = t.Add(coarseStep)
	}

	return passes, nil
}

// buildPass assembles one pass from the first coarse sample at or
// above the floor. prevBelow is the preceding below-floor sample; it
// is zero when the pass was already in progress at the window start,
// in which case the rise is pinned there. Returns the pass, the set
// time to resume scanning from, and whether the pass is usable.
func buildPass(ctx context.Context, prop *propagation.SGP4Propagator, req Request, rel func(time.Time) float64, prevBelow, coarseHit, end time.Time) (PassEvent, time.Time, bool) {
	rise := coarseHit
	if !prevBelow.IsZero() {
		// The bracket can fail to match when prevBelow sits exactly on a
		// previous refined set instant; the coarse hit then stands in.
		if res := solver.FindCrossing(rel, prevBelow, coarseHit, solver.CrossUp, 1, refineTol); !res.Time.IsZero() {
			rise = res.Time
		}
	}

	// Walk forward to bracket the downward crossing; truncate at the
	// window end if the satellite is still up.
	set := end
	for t := coarseHit; ; {
		if ctx.Err() != nil {
			set = t
			break
		}
		next := t.Add(coarseStep)
		if !next.Before(end) {
			if rel(end) < 0 {
				if res := solver.FindCrossing(rel, t, end, solver.CrossDown, 1, refineTol); !res.Time.IsZero() {
					set = res.Time
				}
			}
			break
		}
		if rel(next) < 0 {
			set = next
			if res := solver.FindCrossing(rel, t, next, solver.CrossDown, 1, refineTol); !res.Time.IsZero() {
				set = res.Time
			}
			break
		}
		t = next
	}

	if !set.After(rise) {
		return PassEvent{}, set, false
	}

	// Absolute elevation for the culmination search.
	elev := func(t time.Time) float64 {
		la, _, err := lookAt(prop, req.Observer, t)
		if err != nil {
			return -999
		}
		return la.ElevationDeg
	}
	steps := int(set.Sub(rise)/coarseStep) + 2
	if steps < 4 {
		steps = 4
	}
	maxRes := solver.FindMaximum(elev, rise, set, steps, refineTol)

	pass := PassEvent{
		StartTime:        rise,
		MaxElevationTime: maxRes.Time,
		EndTime:          set,
		DurationSeconds:  set.Sub(rise).Seconds(),
		MaxElevation:     maxRes.Value,
	}

	if la, _, err := lookAt(prop, req.Observer, rise); err == nil {
		pass.StartAzimuth = la.AzimuthDeg
	}
	if la, _, err := lookAt(prop, req.Observer, set); err == nil {
		pass.EndAzimuth = la.AzimuthDeg
	}
	if la, _, err := lookAt(prop, req.Observer, maxRes.Time); err == nil {
		pass.AzimuthAtMax = la.AzimuthDeg
	}

	pass.GroundTrack = sampleGroundTrack(prop, req.Observer, rise, set)
	classify(&pass, prop, req.Observer)

	return pass, set, true
}

// sampleGroundTrack records sub-satellite points every few seconds
// from rise through set.
func sampleGroundTrack(prop *propagation.SGP4Propagator, obs transform.Observer, rise, set time.Time) []GroundTrackPoint {
	var track []GroundTrackPoint
	sample := func(t time.Time) {
		la, ecef, err := lookAt(prop, obs, t)
		if err != nil {
			return
		}
		geo := transform.ECEFToGeodetic(ecef.X, ecef.Y, ecef.Z)
		track = append(track, GroundTrackPoint{
			Time:      t,
			Latitude:  geo.LatDeg,
			Longitude: geo.LonDeg,
			Altitude:  geo.AltM,
			Elevation: la.ElevationDeg,
		})
	}

	for t := rise; t.Before(set); t = t.Add(groundTrackStep) {
		sample(t)
	}
	sample(set)
	return track
}

// classify fills the visual-observability fields, evaluated at the
// max-elevation instant.
func classify(pass *PassEvent, prop *propagation.SGP4Propagator, obs transform.Observer) {
	at := pass.MaxElevationTime

	sunEq, err := ephemeris.Position(ephemeris.Sun, at)
	if err != nil {
		return
	}
	sunAlt := transform.EquatorialToHorizontal(sunEq, obs, at).AltDeg
	pass.ObserverDark = sunAlt < visibility.CivilTwilightDeg

	if teme, err := prop.PropagateAt(at); err == nil {
		pass.Sunlit = sunlit(teme, sunEq)
	}
	pass.Visible = pass.ObserverDark && pass.Sunlit

	// Morning or evening twilight is told apart by whether the Sun is
	// climbing.
	laterEq, err := ephemeris.Position(ephemeris.Sun, at.Add(time.Minute))
	sunRising := false
	if err == nil {
		sunRising = transform.EquatorialToHorizontal(laterEq, obs, at.Add(time.Minute)).AltDeg > sunAlt
	}
	pass.Kind = passKind(sunAlt, sunRising)
	pass.Quality = passQuality(pass.MaxElevation)
	pass.Magnitude = estimateMagnitude(pass.MaxElevation)
}

// sunlit applies a cylindrical Earth-shadow model: the satellite is
// eclipsed when it sits on the anti-solar side of Earth within one
// Earth radius of the shadow axis. The model ignores the umbral cone
// taper and penumbra, which shifts shadow entry and exit by a few
// seconds for LEO.
func sunlit(teme transform.PositionTEME, sunEq ephemeris.Equatorial) bool {
	raRad := astrotime.Deg2Rad(sunEq.RADeg)
	decRad := astrotime.Deg2Rad(sunEq.DecDeg)

	// Unit vector from the Sun toward Earth: the shadow axis.
	sx := -math.Cos(decRad) * math.Cos(raRad)
	sy := -math.Cos(decRad) * math.Sin(raRad)
	sz := -math.Sin(decRad)

	proj := teme.X*sx + teme.Y*sy + teme.Z*sz
	if proj <= 0 {
		return true
	}

	px := teme.X - proj*sx
	py := teme.Y - proj*sy
	pz := teme.Z - proj*sz
	perp := math.Sqrt(px*px + py*py + pz*pz)
	return perp >= earthShadowRadiusKm
}

func passKind(sunAltDeg float64, sunRising bool) string {
	switch {
	case sunAltDeg < visibility.AstronomicalTwilightDeg:
		return "night"
	case sunAltDeg < visibility.CivilTwilightDeg:
		if sunRising {
			return "dawn"
		}
		return "dusk"
	default:
		return "daylight"
	}
}

func passQuality(maxElDeg float64) string {
	switch {
	case maxElDeg > 60:
		return "excellent"
	case maxElDeg > 30:
		return "good"
	case maxElDeg > 10:
		return "fair"
	default:
		return "poor"
	}
}

// estimateMagnitude maps culmination elevation to a rough apparent
// magnitude for an ISS-class object: overhead passes are shortest
// range and brightest.
func estimateMagnitude(maxElDeg float64) float64 {
	switch {
	case maxElDeg > 75:
		return -3.5
	case maxElDeg > 50:
		return -2.5
	case maxElDeg > 30:
		return -1.5
	default:
		return -0.5
	}
}

// lookAt propagates the satellite to t and derives the observer's look
// angles plus the satellite's ECEF position.
func lookAt(prop *propagation.SGP4Propagator, obs transform.Observer, t time.Time) (transform.LookAngles, transform.PositionECEF, error) {
	teme, err := prop.PropagateAt(t)
	if err != nil {
		return transform.LookAngles{}, transform.PositionECEF{}, err
	}
	ecef := transform.TEMEToECEF(teme, t)
	la := transform.ECEFToLookAngles(obs, ecef.X, ecef.Y, ecef.Z)
	return la, ecef, nil
}
