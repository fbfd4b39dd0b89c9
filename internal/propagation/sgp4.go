package propagation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/transform"
)

// MaxElementAge is how old an element set may be before predictions
// from it are refused. SGP4 accuracy decays with element age; two
// weeks is the usual operational cutoff.
const MaxElementAge = 14 * 24 * time.Hour

// maxEpochLead rejects element sets whose epoch sits implausibly far
// in the future, which indicates clock skew or a corrupted epoch field.
const maxEpochLead = 24 * time.Hour

// ErrStaleElements marks an element set unusable for the requested
// prediction time. The caller must refresh its TLE data; predicting
// from it anyway would silently degrade, so this is a hard failure.
var ErrStaleElements = errors.New("stale orbital elements")

// CheckElementAge verifies that an element set with the given epoch is
// usable for a prediction at the given instant.
func CheckElementAge(epoch, at time.Time) error {
	if epoch.IsZero() {
		return fmt.Errorf("%w: element epoch unknown", ErrStaleElements)
	}
	age := at.Sub(epoch)
	if age > MaxElementAge {
		return fmt.Errorf("%w: epoch %s is %.1f days before %s (limit %.0f days)",
			ErrStaleElements, epoch.UTC().Format(time.RFC3339), age.Hours()/24,
			at.UTC().Format(time.RFC3339), MaxElementAge.Hours()/24)
	}
	if age < -maxEpochLead {
		return fmt.Errorf("%w: epoch %s is %.1f days after %s",
			ErrStaleElements, epoch.UTC().Format(time.RFC3339), -age.Hours()/24,
			at.UTC().Format(time.RFC3339))
	}
	return nil
}

// SGP4Propagator wraps go-satellite for a single satellite. The
// library's Propagate takes the Satellite by value, so a built
// propagator is safe for concurrent use; the flip side is that SGP4
// error codes are invisible to the caller, and failures are detected
// by checking the output for NaN/Inf and unreasonable magnitudes.
type SGP4Propagator struct {
	sat     satellite.Satellite
	noradID int
}

// NewSGP4Propagator initializes the SGP4 model from TLE lines. Lines
// are pre-validated because go-satellite calls log.Fatal on malformed
// input, which would kill the process.
func NewSGP4Propagator(line1, line2 string, noradID int) (*SGP4Propagator, error) {
	if err := validateTLELines(line1, line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", noradID, err)
	}

	sat := satellite.TLEToSat(line1, line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", noradID, sat.Error, sat.ErrorStr)
	}
	return &SGP4Propagator{sat: sat, noradID: noradID}, nil
}

func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// Propagate computes the satellite state at the given UTC instant.
// Returns position and velocity in the TEME frame (km, km/s).
func (p *SGP4Propagator) Propagate(year, month, day, hour, min, sec int) (transform.PositionTEME, error) {
	pos, vel := satellite.Propagate(p.sat, year, month, day, hour, min, sec)

	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) ||
		math.IsInf(pos.X, 0) || math.IsInf(pos.Y, 0) || math.IsInf(pos.Z, 0) {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.noradID)
	}

	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return transform.PositionTEME{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.noradID, mag)
	}

	return transform.PositionTEME{
		X:  pos.X,
		Y:  pos.Y,
		Z:  pos.Z,
		VX: vel.X,
		VY: vel.Y,
		VZ: vel.Z,
	}, nil
}

// PropagateAt propagates to an arbitrary instant. The library only
// accepts whole seconds, so the sub-second remainder advances the
// state along the velocity vector; for under a second of coast the
// straight-line step stays within metres of the true arc, far inside
// SGP4's own error budget.
func (p *SGP4Propagator) PropagateAt(t time.Time) (transform.PositionTEME, error) {
	t = t.UTC()
	state, err := p.Propagate(t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())
	if err != nil {
		return transform.PositionTEME{}, err
	}

	if frac := float64(t.Nanosecond()) / 1e9; frac > 0 {
		state.X += state.VX * frac
		state.Y += state.VY * frac
		state.Z += state.VZ * frac
	}
	return state, nil
}
