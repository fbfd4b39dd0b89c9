package ephemeris

import (
	"math"
	"testing"
)

func TestSolveKepler_ZeroEccentricity(t *testing.T) {
	// Circular orbit: E equals M identically.
	for _, m := range []float64{0, 0.5, math.Pi / 2, math.Pi, -2.1} {
		e, err := solveKepler(m, 0)
		if err != nil {
			t.Fatalf("solveKepler(%.3f, 0) error: %v", m, err)
		}
		if e != m {
			t.Errorf("solveKepler(%.3f, 0) = %.12f, want exactly M", m, e)
		}
	}
}

func TestSolveKepler_ResidualWithinTolerance(t *testing.T) {
	// Eccentricities span the planets (Mercury 0.206 is the extreme) plus
	// margin well beyond anything the element tables feed in.
	eccs := []float64{0.0167, 0.0485, 0.0934, 0.2056, 0.4, 0.7}

	for _, ecc := range eccs {
		for i := 0; i < 64; i++ {
			m := -math.Pi + 2*math.Pi*float64(i)/64
			E, err := solveKepler(m, ecc)
			if err != nil {
				t.Fatalf("solveKepler(%.4f, %.4f) error: %v", m, ecc, err)
			}
			if resid := math.Abs(E - ecc*math.Sin(E) - m); resid > 1e-12 {
				t.Errorf("solveKepler(%.4f, %.4f): residual %.3e, want < 1e-12", m, ecc, resid)
			}
		}
	}
}

func TestSolveKepler_OddSymmetry(t *testing.T) {
	// Kepler's equation is odd in M: E(-M) = -E(M).
	const ecc = 0.3
	for _, m := range []float64{0.1, 0.9, 2.4, 3.0} {
		ePos, err := solveKepler(m, ecc)
		if err != nil {
			t.Fatalf("solveKepler(%.3f, %.2f) error: %v", m, ecc, err)
		}
		eNeg, err := solveKepler(-m, ecc)
		if err != nil {
			t.Fatalf("solveKepler(%.3f, %.2f) error: %v", -m, ecc, err)
		}
		if math.Abs(ePos+eNeg) > 1e-12 {
			t.Errorf("E(%.3f)=%.12f and E(%.3f)=%.12f are not symmetric", m, ePos, -m, eNeg)
		}
	}
}
