package render

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// Filter transforms a surface into a new one. Filters never modify their input.
type Filter func(src *image.NRGBA) *image.NRGBA

// Apply runs filters in order. Each filter draws the current surface into a
// scratch surface, which then becomes the current surface, so no filter ever
// reads pixels it has already written. Nil filters are skipped. The returned
// surface never aliases surface.
func Apply(surface *image.NRGBA, filters ...Filter) *image.NRGBA {
	out := imaging.Clone(surface)
	for _, f := range filters {
		if f == nil {
			continue
		}
		out = f(out)
	}
	return out
}

// Chain returns the fixed filter order for a set of adjustments:
// brightness, contrast, saturation, then noise reduction and sharpening when enabled.
func Chain(adj Adjustments) []Filter {
	filters := []Filter{
		Brightness(adj.Brightness),
		Contrast(adj.Contrast),
		Saturate(adj.Saturation),
	}
	if adj.NoiseReduction > 0 {
		filters = append(filters, Blur(adj.NoiseReduction/50))
	}
	if adj.Sharpen > 0 {
		filters = append(filters, Contrast(100+adj.Sharpen))
	}
	return filters
}

// Brightness multiplies every color channel by pct/100, like CSS brightness().
func Brightness(pct float64) Filter {
	if pct == 100 {
		return nil
	}
	k := pct / 100
	return lutFilter(func(v float64) float64 { return v * k })
}

// Contrast scales every color channel around the midpoint by pct/100, like CSS contrast().
func Contrast(pct float64) Filter {
	if pct == 100 {
		return nil
	}
	k := pct / 100
	return lutFilter(func(v float64) float64 { return (v-127.5)*k + 127.5 })
}

// Saturate applies the CSS saturate() color matrix with amount pct/100.
func Saturate(pct float64) Filter {
	if pct == 100 {
		return nil
	}
	s := pct / 100
	m := [3][3]float64{
		{0.213 + 0.787*s, 0.715 - 0.715*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 + 0.285*s, 0.072 - 0.072*s},
		{0.213 - 0.213*s, 0.715 - 0.715*s, 0.072 + 0.928*s},
	}
	return func(src *image.NRGBA) *image.NRGBA {
		return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
			r, g, b := float64(c.R), float64(c.G), float64(c.B)
			return color.NRGBA{
				R: clamp8(m[0][0]*r + m[0][1]*g + m[0][2]*b),
				G: clamp8(m[1][0]*r + m[1][1]*g + m[1][2]*b),
				B: clamp8(m[2][0]*r + m[2][1]*g + m[2][2]*b),
				A: c.A,
			}
		})
	}
}

// Blur applies a Gaussian blur with the given radius in pixels, like CSS blur().
func Blur(radius float64) Filter {
	if radius <= 0 {
		return nil
	}
	return func(src *image.NRGBA) *image.NRGBA {
		return imaging.Blur(src, radius)
	}
}

func lutFilter(fn func(v float64) float64) Filter {
	var lut [256]uint8
	for i := range lut {
		lut[i] = clamp8(fn(float64(i)))
	}
	return func(src *image.NRGBA) *image.NRGBA {
		return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
			return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
		})
	}
}

func clamp8(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
