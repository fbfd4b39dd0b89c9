package ephemeris

import (
	"fmt"
	"math"
)

const (
	// keplerTol is the convergence threshold on the equation residual in
	// radians. 1e-14 rad is far below the arcminute-level accuracy of the
	// element fit itself.
	keplerTol = 1e-14

	keplerMaxIter = 15
)

// solveKepler solves Kepler's equation M = E - e·sin(E) for the eccentric
// anomaly E (radians). M is the mean anomaly in radians, e the eccentricity.
//
// Uses Danby's starter E₀ = M + 0.85·e·sign(sin M) followed by
// Newton–Raphson iteration. For planetary eccentricities (e < 0.25) this
// converges in three or four steps; the error return exists for the
// contract, not for any reachable planetary input.
func solveKepler(M, e float64) (float64, error) {
	E := M + 0.85*e*math.Copysign(1, math.Sin(M))

	for i := 0; i < keplerMaxIter; i++ {
		f := E - e*math.Sin(E) - M
		if math.Abs(f) < keplerTol {
			return E, nil
		}
		E -= f / (1 - e*math.Cos(E))
	}

	// One final residual check: the last Newton step may have landed inside
	// tolerance without being tested.
	if f := E - e*math.Sin(E) - M; math.Abs(f) < keplerTol {
		return E, nil
	}
	return E, fmt.Errorf("kepler equation did not converge after %d iterations (M=%.9f e=%.6f)", keplerMaxIter, M, e)
}
