package editor

import (
	"fmt"
	"image"

	"github.com/cenkalti/dominantcolor"
	"github.com/dixieflatline76/Retouch/pkg/render"
)

// DefaultBackgroundColor is used until the user picks one.
const DefaultBackgroundColor = "#ffffff"

// BackgroundMode is either transparent or a solid color.
type BackgroundMode struct {
	Transparent bool   `json:"transparent"`
	Color       string `json:"color,omitempty"`
}

func DefaultBackground() BackgroundMode {
	return BackgroundMode{Color: DefaultBackgroundColor}
}

// Validate requires a parseable color when the mode is not transparent.
func (b BackgroundMode) Validate() error {
	if b.Transparent {
		return nil
	}
	if _, err := render.ParseHexColor(b.Color); err != nil {
		return invalid(fmt.Errorf("background: %w", err))
	}
	return nil
}

// SuggestBackground returns the dominant color of img as #rrggbb.
func SuggestBackground(img image.Image) string {
	return render.HexColor(dominantcolor.Find(img))
}
