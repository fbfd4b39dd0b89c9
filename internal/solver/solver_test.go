package solver

import (
	"math"
	"testing"
	"time"
)

var base = time.Date(2024, time.June, 21, 0, 0, 0, 0, time.UTC)

// seconds returns elapsed seconds since the test base instant.
func seconds(t time.Time) float64 {
	return t.Sub(base).Seconds()
}

func TestFindCrossing_LinearRamp(t *testing.T) {
	// f crosses zero exactly one hour in.
	f := func(tt time.Time) float64 { return seconds(tt) - 3600 }

	res := FindCrossing(f, base, base.Add(4*time.Hour), CrossUp, 16, 10*time.Millisecond)
	if !res.OK {
		t.Fatalf("expected a crossing, got %+v", res)
	}
	if res.Err != nil {
		t.Fatalf("unexpected refinement error: %v", res.Err)
	}

	want := base.Add(time.Hour)
	if diff := res.Time.Sub(want); diff < -20*time.Millisecond || diff > 20*time.Millisecond {
		t.Errorf("crossing at %v, want %v +/- 20ms (diff %v)", res.Time, want, diff)
	}
}

func TestFindCrossing_DirectionFilter(t *testing.T) {
	// cos over a 24h period: positive at t0, down through zero at 6h,
	// up through zero at 18h.
	f := func(tt time.Time) float64 { return math.Cos(2 * math.Pi * seconds(tt) / 86400) }
	t1 := base.Add(24 * time.Hour)

	tests := []struct {
		name string
		dir  Crossing
		want time.Duration
	}{
		{"down finds 6h", CrossDown, 6 * time.Hour},
		{"up skips the earlier down crossing", CrossUp, 18 * time.Hour},
		{"any takes the first", CrossAny, 6 * time.Hour},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := FindCrossing(f, base, t1, tc.dir, 24, time.Millisecond)
			if !res.OK {
				t.Fatalf("expected a crossing, got %+v", res)
			}
			want := base.Add(tc.want)
			if diff := res.Time.Sub(want); diff < -10*time.Millisecond || diff > 10*time.Millisecond {
				t.Errorf("crossing at %v, want %v +/- 10ms (diff %v)", res.Time, want, diff)
			}
		})
	}
}

func TestFindCrossing_NoBracket(t *testing.T) {
	// Strictly positive function: no crossing, no error.
	f := func(tt time.Time) float64 { return 5 + math.Sin(seconds(tt)/1000) }

	res := FindCrossing(f, base, base.Add(2*time.Hour), CrossAny, 32, time.Second)
	if res.OK {
		t.Errorf("expected no crossing, got time %v", res.Time)
	}
	if res.Err != nil {
		t.Errorf("a bracketless window is not an error, got %v", res.Err)
	}
}

func TestFindCrossing_ToleranceBound(t *testing.T) {
	// Bisection leaves the true root inside the final bracket, so the
	// midpoint is within tol of it.
	exact := 7_777.125 // seconds
	f := func(tt time.Time) float64 { return seconds(tt) - exact }
	want := base.Add(time.Duration(exact * float64(time.Second)))

	for _, tol := range []time.Duration{time.Second, 100 * time.Millisecond, time.Millisecond} {
		res := FindCrossing(f, base, base.Add(4*time.Hour), CrossUp, 12, tol)
		if !res.OK {
			t.Fatalf("tol %v: expected a crossing", tol)
		}
		diff := res.Time.Sub(want)
		if diff < 0 {
			diff = -diff
		}
		if diff > tol {
			t.Errorf("tol %v: crossing off by %v", tol, diff)
		}
	}
}

func TestFindCrossing_DegenerateWindows(t *testing.T) {
	f := func(tt time.Time) float64 { return seconds(tt) }

	if res := FindCrossing(f, base, base, CrossAny, 10, time.Second); res.OK {
		t.Error("empty window should not find a crossing")
	}
	if res := FindCrossing(f, base.Add(time.Hour), base, CrossAny, 10, time.Second); res.OK {
		t.Error("inverted window should not find a crossing")
	}
	if res := FindCrossing(f, base, base.Add(time.Hour), CrossAny, 0, time.Second); res.OK {
		t.Error("zero steps should not find a crossing")
	}
}

func TestFindMaximum_ParabolaVertex(t *testing.T) {
	// Exact parabola: the three-point fit recovers the vertex immediately,
	// even though it sits between coarse samples.
	const vertex = 4321.777 // seconds
	f := func(tt time.Time) float64 {
		d := seconds(tt) - vertex
		return -d * d
	}

	res := FindMaximum(f, base, base.Add(10000*time.Second), 10, time.Millisecond)
	if !res.OK {
		t.Fatal("expected a maximum")
	}

	want := base.Add(time.Duration(vertex * float64(time.Second)))
	if diff := res.Time.Sub(want); diff < -50*time.Millisecond || diff > 50*time.Millisecond {
		t.Errorf("maximum at %v, want %v (diff %v)", res.Time, want, diff)
	}
	if res.Value < -0.001 {
		t.Errorf("maximum value = %v, want ~0", res.Value)
	}
}

func TestFindMaximum_SinePeak(t *testing.T) {
	// Half sine arch peaking at the window center. The peak is flat, so
	// allow a looser (but still sub-second) recovery.
	f := func(tt time.Time) float64 { return math.Sin(math.Pi * seconds(tt) / 7200) }

	res := FindMaximum(f, base, base.Add(2*time.Hour), 8, time.Millisecond)
	if !res.OK {
		t.Fatal("expected a maximum")
	}

	want := base.Add(time.Hour)
	if diff := res.Time.Sub(want); diff < -time.Second || diff > time.Second {
		t.Errorf("maximum at %v, want %v (diff %v)", res.Time, want, diff)
	}
	if math.Abs(res.Value-1) > 1e-6 {
		t.Errorf("maximum value = %v, want ~1", res.Value)
	}
}

func TestFindMaximum_MonotoneEndsAtBoundary(t *testing.T) {
	// Monotone increasing function: the maximum is the window end, and
	// refinement must not wander past it.
	f := seconds

	t1 := base.Add(time.Hour)
	res := FindMaximum(f, base, t1, 6, 10*time.Millisecond)
	if !res.OK {
		t.Fatal("expected a maximum")
	}
	if !res.Time.Equal(t1) {
		t.Errorf("maximum at %v, want window end %v", res.Time, t1)
	}
	if res.Value != 3600 {
		t.Errorf("maximum value = %v, want 3600", res.Value)
	}
}
