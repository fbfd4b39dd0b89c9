package propagation

import (
	"time"

	"github.com/ouardaw/Cosmic-Night-Agent/internal/ephemeris"
)

// Keyframe holds the state of the whole sky at a single instant: every
// satellite's ECEF state plus the geocentric equatorial coordinates of
// the Sun, Moon, and planets. Observers derive their local horizontal
// view from a keyframe without re-running the models.
type Keyframe struct {
	Timestamp  time.Time
	Satellites []SatelliteState
	Bodies     []BodyState
}

// SatelliteState is one satellite's ECEF state at a keyframe instant.
type SatelliteState struct {
	NORADID      int
	Name         string
	PositionECEF [3]float64 // meters
	VelocityECEF [3]float64 // m/s
}

// BodyState is one body's geocentric equatorial position at a keyframe
// instant.
type BodyState struct {
	Body       ephemeris.Body
	Equatorial ephemeris.Equatorial
}

// Config holds propagation tuning loaded from environment variables.
type Config struct {
	Workers int           // worker pool size (default: runtime.NumCPU())
	Step    time.Duration // keyframe interval (default: 5s)
	Horizon time.Duration // propagation horizon (default: 600s)
}
