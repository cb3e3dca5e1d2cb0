package render

import (
	"fmt"
	"math"
)

// Adjustments holds the user-controlled rendering parameters, all in percent.
type Adjustments struct {
	Brightness     float64 `json:"brightness"`      // [0,200], 100 = identity
	Contrast       float64 `json:"contrast"`        // [0,200], 100 = identity
	Saturation     float64 `json:"saturation"`      // [0,200], 100 = identity
	Resize         float64 `json:"resize"`          // [10,100] of the baseline dimensions
	NoiseReduction float64 `json:"noise_reduction"` // [0,100], blur radius = value/50
	Sharpen        float64 `json:"sharpen"`         // [0,100], contrast boost = 100+value
}

// DefaultAdjustments returns the identity parameters.
func DefaultAdjustments() Adjustments {
	return Adjustments{
		Brightness: 100,
		Contrast:   100,
		Saturation: 100,
		Resize:     100,
	}
}

type bound struct {
	name     string
	value    float64
	min, max float64
}

// Validate checks every parameter against its bounds.
func (a Adjustments) Validate() error {
	for _, b := range []bound{
		{"brightness", a.Brightness, 0, 200},
		{"contrast", a.Contrast, 0, 200},
		{"saturation", a.Saturation, 0, 200},
		{"resize", a.Resize, 10, 100},
		{"noise_reduction", a.NoiseReduction, 0, 100},
		{"sharpen", a.Sharpen, 0, 100},
	} {
		if b.value < b.min || b.value > b.max || math.IsNaN(b.value) {
			return fmt.Errorf("%s %v not in [%v,%v]: %w", b.name, b.value, b.min, b.max, ErrOutOfRange)
		}
	}
	return nil
}
