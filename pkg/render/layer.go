package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// LayerOptions controls how the image layer is drawn.
type LayerOptions struct {
	// Resampler scales the source to the target dimensions.
	Resampler imaging.ResampleFilter
	// Underlay, when set, is painted as a solid color below the filtered image.
	Underlay color.Color
}

// DefaultLayerOptions returns options with bilinear scaling and no underlay.
func DefaultLayerOptions() LayerOptions {
	return LayerOptions{Resampler: imaging.Linear}
}

// ResamplerByName maps a configured resampler name onto an imaging filter.
func ResamplerByName(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "linear", "":
		return imaging.Linear, nil
	case "catmullrom":
		return imaging.CatmullRom, nil
	case "lanczos":
		return imaging.Lanczos, nil
	default:
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resampler %q", name)
	}
}

// RenderLayer draws src scaled to baseline.Scale(adj.Resize) and runs the
// adjustment filter chain over it. src is never modified.
func RenderLayer(src image.Image, baseline Dimensions, adj Adjustments, opts LayerOptions) (*image.NRGBA, error) {
	if src == nil {
		return nil, ErrSourceNotLoaded
	}
	if baseline.Empty() {
		return nil, fmt.Errorf("baseline %s: %w", baseline, ErrRenderingUnavailable)
	}
	if err := adj.Validate(); err != nil {
		return nil, err
	}

	target := baseline.Scale(adj.Resize)
	scaled := imaging.Resize(src, target.Width, target.Height, opts.Resampler)
	filtered := Apply(scaled, Chain(adj)...)

	if opts.Underlay == nil {
		return filtered, nil
	}
	return Underlay(filtered, opts.Underlay), nil
}

// Underlay returns a copy of foreground drawn over a solid background of col.
func Underlay(foreground *image.NRGBA, col color.Color) *image.NRGBA {
	dims := DimensionsOf(foreground)
	base := imaging.New(dims.Width, dims.Height, col)
	return imaging.Overlay(base, foreground, image.Pt(0, 0), 1.0)
}
