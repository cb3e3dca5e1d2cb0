// Package asset provides the embedded font faces used to draw text overlays.
package asset

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/dixieflatline76/Retouch/util/log"
)

// familyTTF maps the font families offered to the user onto the embedded Go fonts.
// The system fonts themselves are not shipped, so each family resolves to the
// closest Go font in weight and spacing. There is no serif Go font, so the
// serif families share Go Regular.
var familyTTF = map[string][]byte{
	"Arial":           goregular.TTF,
	"Helvetica":       goregular.TTF,
	"Verdana":         gomedium.TTF,
	"Georgia":         goregular.TTF,
	"Times New Roman": goregular.TTF,
	"Courier New":     gomono.TTF,
	"Impact":          gobold.TTF,
}

// Manager manages the loading of font assets.
type Manager struct {
	mu    sync.Mutex
	fonts map[string]*opentype.Font
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{fonts: make(map[string]*opentype.Font)}
}

// Families returns the font families the manager can serve.
func (am *Manager) Families() []string {
	return []string{"Arial", "Helvetica", "Georgia", "Times New Roman", "Courier New", "Verdana", "Impact"}
}

// Face returns a new face for family at sizePx pixels. The face is not safe
// for concurrent use; callers close it when done.
func (am *Manager) Face(family string, sizePx float64) (font.Face, error) {
	if sizePx <= 0 {
		return nil, fmt.Errorf("font size must be positive, got %v", sizePx)
	}

	f, err := am.font(family)
	if err != nil {
		return nil, err
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72, // 1pt == 1px
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Println("Error creating font face:", err)
		return nil, fmt.Errorf("creating face for %q: %w", family, err)
	}
	return face, nil
}

func (am *Manager) font(family string) (*opentype.Font, error) {
	am.mu.Lock()
	defer am.mu.Unlock()

	if f, ok := am.fonts[family]; ok {
		return f, nil
	}

	ttf, ok := familyTTF[family]
	if !ok {
		return nil, fmt.Errorf("unknown font family %q", family)
	}

	f, err := opentype.Parse(ttf)
	if err != nil {
		log.Println("Error parsing font:", err)
		return nil, fmt.Errorf("parsing font %q: %w", family, err)
	}
	am.fonts[family] = f
	return f, nil
}
