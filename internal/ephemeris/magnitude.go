package ephemeris

// Representative apparent magnitudes near mean opposition/elongation.
// Actual brightness varies with phase and distance; these are the values
// reported alongside positions so clients can rank targets without a
// full photometric model.
var bodyMagnitudes = map[Body]float64{
	Sun:     -26.74,
	Mercury: -0.5,
	Venus:   -4.0,
	Mars:    0.5,
	Jupiter: -2.5,
	Saturn:  0.5,
	Uranus:  5.7,
	Neptune: 7.8,
}

// Magnitude returns the representative apparent magnitude for a body.
// The second return is false for bodies without a tabulated value
// (the Moon, whose brightness is phase-dominated).
func Magnitude(body Body) (float64, bool) {
	m, ok := bodyMagnitudes[body]
	return m, ok
}
