package render

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Merge draws textLayer over imageLayer with normal alpha compositing and
// returns the result as a new surface. Both layers must have the same size.
// A nil textLayer yields a copy of imageLayer.
func Merge(imageLayer, textLayer *image.NRGBA) (*image.NRGBA, error) {
	if imageLayer == nil {
		return nil, ErrRenderingUnavailable
	}
	if textLayer == nil {
		return imaging.Clone(imageLayer), nil
	}

	imgDims, textDims := DimensionsOf(imageLayer), DimensionsOf(textLayer)
	if imgDims != textDims {
		return nil, fmt.Errorf("image %s, text %s: %w", imgDims, textDims, ErrDimensionMismatch)
	}
	return imaging.Overlay(imageLayer, textLayer, image.Pt(0, 0), 1.0), nil
}
