// Package report aggregates everything the engine knows about a night
// sky into one serializable answer: per-body positions and rise/set
// events, sun and twilight times, moon phase, active meteor showers,
// and satellite passes.
package report

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/meteors"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/moonphase"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/passes"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/tle"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/visibility"
)

// Request is one visibility query. At anchors both the instantaneous
// positions and the local-day event window. Elements carries the
// caller-supplied satellite element sets; the engine never fetches
// them itself.
type Request struct {
	Observer        transform.Observer
	At              time.Time
	HorizonDays     int              // pass lookahead, default 1
	MinElevationDeg float64          // pass elevation floor
	Bodies          []ephemeris.Body // nil means all supported bodies
	Elements        []tle.TLEEntry
}

// BodyReport is one body's slice of the report.
type BodyReport struct {
	Body       string               `json:"body"`
	Equatorial ephemeris.Equatorial `json:"equatorial"`
	Horizontal transform.Horizontal `json:"horizontal"`
	Confidence string               `json:"confidence"`
	Magnitude  *float64             `json:"magnitude,omitempty"`
	Times      visibility.BodyTimes `json:"times"`
	Error      string               `json:"error,omitempty"`
}

// VisibilityReport is the full aggregated answer for one observer and
// instant.
type VisibilityReport struct {
	Observer  transform.Observer       `json:"observer"`
	At        time.Time                `json:"at"`
	Bodies    []BodyReport             `json:"bodies"`
	SunTimes  visibility.SunTimes      `json:"sun_times"`
	MoonPhase moonphase.Phase          `json:"moon_phase"`
	Meteors   []meteors.Activity       `json:"meteor_showers,omitempty"`
	Passes    []passes.SatellitePasses `json:"passes,omitempty"`
}

// Compute builds the report. Observer validation failures abort with
// ErrInvalidObserver; every other failure is partial and lands in the
// entry it belongs to. Identical requests produce identical reports:
// nothing here reads the wall clock or other hidden state.
func Compute(ctx context.Context, req Request) (*VisibilityReport, error) {
	if err := req.Observer.Validate(); err != nil {
		return nil, err
	}
	if req.At.IsZero() {
		return nil, fmt.Errorf("report: query instant not set")
	}
	if req.HorizonDays <= 0 {
		req.HorizonDays = 1
	}

	bodies := req.Bodies
	if len(bodies) == 0 {
		bodies = ephemeris.AllBodies()
	}

	rep := &VisibilityReport{
		Observer: req.Observer,
		At:       req.At.UTC(),
		Bodies:   make([]BodyReport, len(bodies)),
	}

	// Bodies are independent; compute them in parallel and keep the
	// requested order.
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup
	for i, b := range bodies {
		wg.Add(1)
		go func(idx int, body ephemeris.Body) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				rep.Bodies[idx] = BodyReport{Body: body.String(), Error: "cancelled"}
				return
			}
			rep.Bodies[idx] = bodyReport(body, req.Observer, req.At)
		}(i, b)
	}

	rep.SunTimes = visibility.ComputeSunTimes(req.Observer, req.At, visibility.Options{})
	rep.MoonPhase = moonphase.Compute(req.At)
	rep.Meteors = meteors.Active(req.At)

	if len(req.Elements) > 0 {
		rep.Passes = passes.Predict(ctx, passes.Request{
			Observer:     req.Observer,
			Entries:      req.Elements,
			Start:        req.At,
			HorizonHours: float64(req.HorizonDays) * 24,
			MinElevation: req.MinElevationDeg,
		})
	}

	wg.Wait()
	return rep, nil
}

// bodyReport computes one body's instantaneous position and local-day
// events.
func bodyReport(body ephemeris.Body, obs transform.Observer, at time.Time) BodyReport {
	br := BodyReport{Body: body.String()}

	eq, err := ephemeris.Position(body, at)
	if err != nil {
		br.Error = err.Error()
		return br
	}
	br.Equatorial = eq
	br.Confidence = eq.Confidence.String()
	br.Horizontal = transform.EquatorialToHorizontal(eq, obs, at)
	if mag, ok := ephemeris.Magnitude(body); ok {
		br.Magnitude = &mag
	}
	br.Times = visibility.ComputeEvents(body, obs, at, visibility.Options{})
	return br
}
