package dem

import "errors"

// Errors reported by the comparison core. They are wrapped with context
// at the point of detection; test for them with errors.Is.
var(
	ErrInvalidGrid           = errors.New("invalid grid")
	ErrInsufficientExtent    = errors.New("grid too small for slope/aspect kernel")
	ErrInsufficientValidData = errors.New("insufficient valid data")
	ErrGeoidCoverage         = errors.New("geoid grid does not cover input extent")
	ErrInvalidConfig         = errors.New("invalid configuration")
)
