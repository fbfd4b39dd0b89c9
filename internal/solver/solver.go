// Package solver provides the time-domain numeric searches the engine
// shares: finding where a scalar function of time crosses zero (rise/set,
// phase boundaries) and where it peaks (transits, pass culminations).
//
// Both searches sample coarsely first and refine only inside a bracket, so
// the target functions are evaluated a bounded, predictable number of times.
package solver

import (
	"errors"
	"fmt"
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/metrics"
)

// maxBisectIters bounds bisection refinement. Sixty halvings shrink any
// bracket this engine uses (days) far below a millisecond, so hitting the
// bound means the tolerance was unreachable, not that the loop was slow.
const maxBisectIters = 60

// ErrNoConvergence reports a refinement that could not close its bracket to
// the requested tolerance. Callers keep the coarse estimate and record the
// failure per event; the search never aborts a whole report.
var ErrNoConvergence = errors.New("root find did not converge")

// Crossing selects which sign changes FindCrossing accepts.
type Crossing int

const (
	// CrossAny accepts the first sign change in either direction.
	CrossAny Crossing = iota
	// CrossUp accepts only negative-to-positive changes (a rise).
	CrossUp
	// CrossDown accepts only positive-to-negative changes (a set).
	CrossDown
)

func (c Crossing) String() string {
	switch c {
	case CrossUp:
		return "up"
	case CrossDown:
		return "down"
	default:
		return "any"
	}
}

// CrossingResult is the outcome of a FindCrossing search.
type CrossingResult struct {
	// Time is the refined crossing instant. On a refinement error it still
	// holds the best bracket midpoint so callers can keep a coarse estimate.
	Time time.Time
	// OK reports whether a matching sign change was found and refined.
	OK bool
	// Err is non-nil only for refinement failure (ErrNoConvergence); a
	// window with no matching crossing returns OK=false with a nil Err.
	Err error
}

// FindCrossing locates the first sign change of f in [t0, t1] matching dir.
// The window is sampled at steps+1 evenly spaced instants to bracket the
// change, then bisection narrows the bracket to tol. Zero function values
// count as positive, so touching the axis from above is a down crossing.
func FindCrossing(f func(time.Time) float64, t0, t1 time.Time, dir Crossing, steps int, tol time.Duration) CrossingResult {
	if steps < 1 || !t1.After(t0) || tol <= 0 {
		return CrossingResult{}
	}

	step := t1.Sub(t0) / time.Duration(steps)
	prevT := t0
	prevV := f(t0)
	for i := 1; i <= steps; i++ {
		curT := t0.Add(step * time.Duration(i))
		if i == steps {
			curT = t1
		}
		curV := f(curT)

		if matches(dir, prevV, curV) {
			return bisect(f, prevT, curT, prevV, tol)
		}
		prevT, prevV = curT, curV
	}
	return CrossingResult{}
}

func matches(dir Crossing, lo, hi float64) bool {
	up := lo < 0 && hi >= 0
	down := lo >= 0 && hi < 0
	switch dir {
	case CrossUp:
		return up
	case CrossDown:
		return down
	default:
		return up || down
	}
}

// bisect narrows a bracketed sign change to tol. loV is the sign-defining
// endpoint value; the invariant sign(f(lo)) = sign(loV) != sign(f(hi)) holds
// throughout.
func bisect(f func(time.Time) float64, lo, hi time.Time, loV float64, tol time.Duration) CrossingResult {
	loNeg := loV < 0
	for i := 0; i < maxBisectIters; i++ {
		if hi.Sub(lo) <= tol {
			metrics.ObserveRootFindIterations(i)
			return CrossingResult{Time: midpoint(lo, hi), OK: true}
		}
		mid := midpoint(lo, hi)
		if (f(mid) < 0) == loNeg {
			lo = mid
		} else {
			hi = mid
		}
	}
	metrics.ObserveRootFindIterations(maxBisectIters)
	return CrossingResult{
		Time: midpoint(lo, hi),
		Err:  fmt.Errorf("bracket [%s, %s] not closed to %s: %w", lo.Format(time.RFC3339Nano), hi.Format(time.RFC3339Nano), tol, ErrNoConvergence),
	}
}

// MaxResult is the outcome of a FindMaximum search.
type MaxResult struct {
	Time  time.Time
	Value float64
	OK    bool
}

// FindMaximum locates the maximum of f in [t0, t1]: a coarse argmax over
// steps+1 samples, then iterated three-point parabolic refinement around it.
// Each iteration fits a parabola through the current triple, jumps to its
// vertex, and halves the spacing, so convergence is geometric regardless of
// how flat the peak is.
func FindMaximum(f func(time.Time) float64, t0, t1 time.Time, steps int, tol time.Duration) MaxResult {
	if steps < 1 || !t1.After(t0) || tol <= 0 {
		return MaxResult{}
	}

	h := t1.Sub(t0) / time.Duration(steps)
	bestT := t0
	bestV := f(t0)
	for i := 1; i <= steps; i++ {
		curT := t0.Add(h * time.Duration(i))
		if i == steps {
			curT = t1
		}
		if curV := f(curT); curV > bestV {
			bestT, bestV = curT, curV
		}
	}
	for i := 0; i < maxBisectIters && h > tol/2; i++ {
		ta := clampTime(bestT.Add(-h), t0, t1)
		tc := clampTime(bestT.Add(h), t0, t1)
		fa := f(ta)
		fc := f(tc)

		// Parabola through (ta, fa), (bestT, bestV), (tc, fc); vertex offset
		// from bestT in units of h. Degenerate (flat or concave-up) fits
		// keep the current best and just halve the spacing.
		denom := fa - 2*bestV + fc
		if denom < 0 {
			offset := 0.5 * (fa - fc) / denom
			if offset > 1 {
				offset = 1
			} else if offset < -1 {
				offset = -1
			}
			tv := clampTime(bestT.Add(time.Duration(offset*float64(h))), t0, t1)
			if fv := f(tv); fv > bestV {
				bestT, bestV = tv, fv
			}
		}
		if fa > bestV {
			bestT, bestV = ta, fa
		}
		if fc > bestV {
			bestT, bestV = tc, fc
		}
		h /= 2
	}

	return MaxResult{Time: bestT, Value: bestV, OK: true}
}

func midpoint(lo, hi time.Time) time.Time {
	return lo.Add(hi.Sub(lo) / 2)
}

func clampTime(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}
