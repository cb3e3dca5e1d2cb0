package editor

import (
	"fmt"

	"github.com/dixieflatline76/Retouch/pkg/render"
	"github.com/google/uuid"
)

// Defaults for a newly added overlay.
const (
	DefaultOverlayText  = "Your text"
	DefaultOverlayX     = 50
	DefaultOverlayY     = 50
	DefaultOverlaySize  = 32
	DefaultOverlayColor = "#ffffff"
)

// OverlayPatch carries the fields to change on an overlay; nil fields are
// left alone.
type OverlayPatch struct {
	Text       *string            `json:"text,omitempty"`
	X          *int               `json:"x,omitempty"`
	Y          *int               `json:"y,omitempty"`
	FontSize   *int               `json:"font_size,omitempty"`
	Color      *string            `json:"color,omitempty"`
	FontFamily *render.FontFamily `json:"font_family,omitempty"`
}

func (p OverlayPatch) apply(o render.TextOverlay) render.TextOverlay {
	if p.Text != nil {
		o.Text = *p.Text
	}
	if p.X != nil {
		o.X = *p.X
	}
	if p.Y != nil {
		o.Y = *p.Y
	}
	if p.FontSize != nil {
		o.FontSize = *p.FontSize
	}
	if p.Color != nil {
		o.Color = *p.Color
	}
	if p.FontFamily != nil {
		o.FontFamily = *p.FontFamily
	}
	return o
}

// OverlayList is the ordered set of text overlays; later entries paint on
// top. It is not safe for concurrent use.
type OverlayList struct {
	items []render.TextOverlay
}

// Add appends an overlay with default values and a fresh id.
func (l *OverlayList) Add() render.TextOverlay {
	o := render.TextOverlay{
		ID:         uuid.NewString(),
		Text:       DefaultOverlayText,
		X:          DefaultOverlayX,
		Y:          DefaultOverlayY,
		FontSize:   DefaultOverlaySize,
		Color:      DefaultOverlayColor,
		FontFamily: render.FontArial,
	}
	l.items = append(l.items, o)
	return o
}

// Update applies p to the overlay with id. The overlay is unchanged if the
// result does not validate.
func (l *OverlayList) Update(id string, p OverlayPatch) (render.TextOverlay, error) {
	i := l.index(id)
	if i < 0 {
		return render.TextOverlay{}, fmt.Errorf("%s: %w", id, ErrOverlayNotFound)
	}
	updated := p.apply(l.items[i])
	if err := updated.Validate(); err != nil {
		return render.TextOverlay{}, invalid(err)
	}
	l.items[i] = updated
	return updated, nil
}

// Delete removes the overlay with id, keeping the order of the rest.
func (l *OverlayList) Delete(id string) error {
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("%s: %w", id, ErrOverlayNotFound)
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	return nil
}

// Items returns a copy of the overlays in paint order.
func (l *OverlayList) Items() []render.TextOverlay {
	out := make([]render.TextOverlay, len(l.items))
	copy(out, l.items)
	return out
}

func (l *OverlayList) Clear() { l.items = nil }

func (l *OverlayList) index(id string) int {
	for i, o := range l.items {
		if o.ID == id {
			return i
		}
	}
	return -1
}
