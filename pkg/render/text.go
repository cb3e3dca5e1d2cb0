package render

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// FontFamily names one of the font families offered for text overlays.
type FontFamily string

const (
	FontArial         FontFamily = "Arial"
	FontHelvetica     FontFamily = "Helvetica"
	FontGeorgia       FontFamily = "Georgia"
	FontTimesNewRoman FontFamily = "Times New Roman"
	FontCourierNew    FontFamily = "Courier New"
	FontVerdana       FontFamily = "Verdana"
	FontImpact        FontFamily = "Impact"
)

// Font size bounds in pixels.
const (
	MinFontSize = 10
	MaxFontSize = 100
)

// FontFamilies lists the supported families in display order.
func FontFamilies() []FontFamily {
	return []FontFamily{FontArial, FontHelvetica, FontGeorgia, FontTimesNewRoman, FontCourierNew, FontVerdana, FontImpact}
}

// Valid reports whether f is a supported family.
func (f FontFamily) Valid() bool {
	for _, known := range FontFamilies() {
		if f == known {
			return true
		}
	}
	return false
}

// TextOverlay is a single text annotation drawn on top of the image.
type TextOverlay struct {
	ID         string     `json:"id"`
	Text       string     `json:"text"`
	X          int        `json:"x"`
	Y          int        `json:"y"`
	FontSize   int        `json:"font_size"`
	Color      string     `json:"color"`
	FontFamily FontFamily `json:"font_family"`
}

// Validate checks the overlay's font size, color and family.
func (o TextOverlay) Validate() error {
	if o.FontSize < MinFontSize || o.FontSize > MaxFontSize {
		return fmt.Errorf("font size %d not in [%d,%d]: %w", o.FontSize, MinFontSize, MaxFontSize, ErrOutOfRange)
	}
	if _, err := ParseHexColor(o.Color); err != nil {
		return err
	}
	if !o.FontFamily.Valid() {
		return fmt.Errorf("unknown font family %q", o.FontFamily)
	}
	return nil
}

// FaceSource supplies font faces by family name and pixel size.
type FaceSource interface {
	Face(family string, sizePx float64) (font.Face, error)
}

// RenderText draws overlays in list order onto a new transparent surface of
// size dims. Each overlay's (X, Y) is the left end of its text baseline.
// Text is not wrapped or clipped beyond the surface bounds.
func RenderText(overlays []TextOverlay, dims Dimensions, faces FaceSource) (*image.NRGBA, error) {
	if dims.Empty() {
		return nil, fmt.Errorf("text layer %s: %w", dims, ErrRenderingUnavailable)
	}
	dst := image.NewNRGBA(dims.Rect())

	for _, o := range overlays {
		if o.Text == "" {
			continue
		}
		if err := drawOverlay(dst, o, faces); err != nil {
			return nil, fmt.Errorf("drawing overlay %s: %w", o.ID, err)
		}
	}
	return dst, nil
}

func drawOverlay(dst *image.NRGBA, o TextOverlay, faces FaceSource) error {
	col, err := ParseHexColor(o.Color)
	if err != nil {
		return err
	}
	if faces == nil {
		return ErrRenderingUnavailable
	}
	face, err := faces.Face(string(o.FontFamily), float64(o.FontSize))
	if err != nil {
		return err
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(o.X, o.Y),
	}
	d.DrawString(o.Text)
	return nil
}
