package render

import (
	"fmt"
	"image"
	"math"
)

// Dimensions is the pixel size of a surface.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DimensionsOf returns the size of img.
func DimensionsOf(img image.Image) Dimensions {
	b := img.Bounds()
	return Dimensions{Width: b.Dx(), Height: b.Dy()}
}

// Scale returns d resized to pct percent, rounding each axis independently.
// Neither axis drops below one pixel.
func (d Dimensions) Scale(pct float64) Dimensions {
	return Dimensions{
		Width:  roundAxis(float64(d.Width) * pct / 100),
		Height: roundAxis(float64(d.Height) * pct / 100),
	}
}

// Multiply returns d with both axes multiplied by factor and rounded.
func (d Dimensions) Multiply(factor float64) Dimensions {
	return Dimensions{
		Width:  roundAxis(float64(d.Width) * factor),
		Height: roundAxis(float64(d.Height) * factor),
	}
}

// Empty reports whether d has no area.
func (d Dimensions) Empty() bool {
	return d.Width <= 0 || d.Height <= 0
}

// Rect returns the rectangle anchored at the origin covering d.
func (d Dimensions) Rect() image.Rectangle {
	return image.Rect(0, 0, d.Width, d.Height)
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%d×%d", d.Width, d.Height)
}

func roundAxis(v float64) int {
	return max(1, int(math.Round(v)))
}
