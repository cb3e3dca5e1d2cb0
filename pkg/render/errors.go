package render

import "errors"

var (
	// ErrSourceNotLoaded is returned when rendering is requested before a source image is available.
	ErrSourceNotLoaded = errors.New("source image not loaded")
	// ErrRenderingUnavailable is returned when a surface needed for drawing is missing.
	ErrRenderingUnavailable = errors.New("rendering surface unavailable")
	// ErrDimensionMismatch is returned when two layers that must align differ in size.
	ErrDimensionMismatch = errors.New("layer dimensions do not match")
	// ErrOutOfRange is returned when a parameter falls outside its allowed bounds.
	ErrOutOfRange = errors.New("value out of range")
)
