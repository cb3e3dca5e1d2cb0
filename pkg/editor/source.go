package editor

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/Retouch/pkg/export"
	"github.com/dixieflatline76/Retouch/pkg/render"
	"github.com/gabriel-vasile/mimetype"

	_ "golang.org/x/image/webp" // register WebP decoding
)

// Source is an uploaded image. It is never modified after loading.
type Source struct {
	Name       string
	Image      image.Image
	Native     export.Native
	Bytes      int64
	Dimensions render.Dimensions
}

// LoadSource sniffs and decodes an uploaded file. Anything that is not an
// image/* type, or cannot be decoded, is rejected with ErrInvalidInput.
// There is no size limit.
func LoadSource(name string, data []byte) (*Source, error) {
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidInput, name, mt.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrInvalidInput, name, err)
	}

	dims := render.DimensionsOf(img)
	if dims.Empty() {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrInvalidInput, name)
	}

	return &Source{
		Name:       name,
		Image:      img,
		Native:     export.NativeFor(mt.String(), name),
		Bytes:      int64(len(data)),
		Dimensions: dims,
	}, nil
}
