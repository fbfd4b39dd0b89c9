// Package visibility turns ephemeris positions into the events an observer
// plans a night around: rise, culmination, and set instants for each body
// over one local calendar day, plus the Sun's twilight structure.
//
// Method: sample the altitude above the body's horizon offset at a coarse
// step, bracket sign changes, and hand each bracket to the shared solver for
// bisection refinement; the culmination is an altitude maximum refined the
// same way. Circumpolar geometry reports an explicit status instead of an
// empty event list.
package visibility

import (
	"sort"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/solver"
	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
)

// EventKind identifies a visibility event.
type EventKind string

const (
	EventRise    EventKind = "rise"
	EventTransit EventKind = "transit"
	EventSet     EventKind = "set"
)

// Status describes how a body relates to the horizon over the computed day.
type Status string

const (
	// StatusEvents: the body crosses the horizon; see the event list.
	StatusEvents Status = "events"
	// StatusAlwaysUp: circumpolar for this observer and day; zero events.
	StatusAlwaysUp Status = "always_up"
	// StatusAlwaysDown: never rises for this observer and day; zero events.
	StatusAlwaysDown Status = "always_down"
)

// Event is one rise, transit, or set instant with the body's horizontal
// position at that instant.
type Event struct {
	Kind   EventKind `json:"kind"`
	Time   time.Time `json:"time"`
	AltDeg float64   `json:"alt_deg"`
	AzDeg  float64   `json:"az_deg"`

	// RefineError notes a root-find that failed to converge; Time then
	// holds the coarse estimate. Per-event, never fatal.
	RefineError string `json:"refine_error,omitempty"`
}

// BodyTimes is the ordered event list for one body over one local day.
type BodyTimes struct {
	Status Status  `json:"status"`
	Events []Event `json:"events,omitempty"`

	// Err records a body-level ephemeris failure; Events is empty then.
	Err string `json:"error,omitempty"`
}

// Options tune the event search. The zero value uses the defaults.
type Options struct {
	// SampleStep is the coarse scan spacing (default 10 minutes). Features
	// shorter than one step — a body grazing the horizon between samples —
	// are not detected.
	SampleStep time.Duration
	// RefineTol is the bisection tolerance on event instants (default 5s).
	RefineTol time.Duration
}

const (
	defaultSampleStep = 10 * time.Minute
	defaultRefineTol  = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.SampleStep <= 0 {
		o.SampleStep = defaultSampleStep
	}
	if o.RefineTol <= 0 {
		o.RefineTol = defaultRefineTol
	}
	return o
}

// ComputeEvents returns rise/transit/set events for one body over the
// observer's local calendar day containing date. The window is bounded in
// the observer's timezone; all event times are ordinary time.Time values.
func ComputeEvents(body ephemeris.Body, obs transform.Observer, date time.Time, opts Options) BodyTimes {
	start, end := localDay(obs, date)

	profile := func(t time.Time) (transform.Horizontal, error) {
		eq, err := ephemeris.Position(body, t)
		if err != nil {
			return transform.Horizontal{}, err
		}
		return transform.EquatorialToHorizontal(eq, obs, t), nil
	}
	horizon := func(t time.Time) float64 { return horizonOffsetDeg(body, t) }

	return computeBodyTimes(profile, horizon, start, end, opts.withDefaults())
}

// localDay bounds the observer's calendar day containing date. Using the
// zone's own midnight keeps DST days (23h/25h) intact.
func localDay(obs transform.Observer, date time.Time) (start, end time.Time) {
	local := date.In(obs.TZ)
	start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, obs.TZ)
	return start, start.AddDate(0, 0, 1)
}

// profileFunc yields the horizontal position at an instant.
type profileFunc func(time.Time) (transform.Horizontal, error)

func computeBodyTimes(profile profileFunc, horizon func(time.Time) float64, start, end time.Time, opts Options) BodyTimes {
	type sample struct {
		t   time.Time
		rel float64 // altitude above the horizon offset
	}

	var samples []sample
	minRel, maxRel := 0.0, 0.0
	for t := start; ; {
		hz, err := profile(t)
		if err != nil {
			return BodyTimes{Status: StatusEvents, Err: err.Error()}
		}
		rel := hz.AltDeg - horizon(t)
		if len(samples) == 0 || rel < minRel {
			minRel = rel
		}
		if len(samples) == 0 || rel > maxRel {
			maxRel = rel
		}
		samples = append(samples, sample{t: t, rel: rel})

		if !t.Before(end) {
			break
		}
		if t = t.Add(opts.SampleStep); t.After(end) {
			t = end
		}
	}

	relAt := func(t time.Time) float64 {
		hz, err := profile(t)
		if err != nil {
			return 0
		}
		return hz.AltDeg - horizon(t)
	}

	var events []Event
	crossed := false
	for i := 1; i < len(samples); i++ {
		lo, hi := samples[i-1], samples[i]

		var kind EventKind
		var dir solver.Crossing
		switch {
		case lo.rel < 0 && hi.rel >= 0:
			kind, dir = EventRise, solver.CrossUp
		case lo.rel >= 0 && hi.rel < 0:
			kind, dir = EventSet, solver.CrossDown
		default:
			continue
		}
		crossed = true

		ev := Event{Kind: kind}
		res := solver.FindCrossing(relAt, lo.t, hi.t, dir, 1, opts.RefineTol)
		switch {
		case res.OK:
			ev.Time = res.Time
		case res.Err != nil:
			ev.Time = res.Time
			ev.RefineError = res.Err.Error()
		default:
			ev.Time = lo.t.Add(hi.t.Sub(lo.t) / 2)
			ev.RefineError = "bracket lost during refinement"
		}
		if hz, err := profile(ev.Time); err == nil {
			ev.AltDeg, ev.AzDeg = hz.AltDeg, hz.AzDeg
		}
		events = append(events, ev)
	}

	if !crossed {
		if minRel > 0 {
			return BodyTimes{Status: StatusAlwaysUp}
		}
		if maxRel < 0 {
			return BodyTimes{Status: StatusAlwaysDown}
		}
	}

	// Culmination: the altitude maximum of the day. A maximum hugging the
	// window boundary is a climb toward an adjacent day's culmination, not
	// a transit of this one, so only interior maxima are reported.
	altAt := func(t time.Time) float64 {
		hz, err := profile(t)
		if err != nil {
			return -90
		}
		return hz.AltDeg
	}
	steps := int(end.Sub(start) / opts.SampleStep)
	if steps < 2 {
		steps = 2
	}
	if res := solver.FindMaximum(altAt, start, end, steps, opts.RefineTol); res.OK {
		interior := res.Time.After(start.Add(opts.SampleStep)) && res.Time.Before(end.Add(-opts.SampleStep))
		if interior {
			ev := Event{Kind: EventTransit, Time: res.Time}
			if hz, err := profile(res.Time); err == nil {
				ev.AltDeg, ev.AzDeg = hz.AltDeg, hz.AzDeg
			}
			events = append(events, ev)
		}
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return BodyTimes{Status: StatusEvents, Events: events}
}
