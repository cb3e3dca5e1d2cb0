package export

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/deepteams/webp"
	"github.com/disintegration/imaging"
)

// Result is an encoded image ready to be saved.
type Result struct {
	Data      []byte `json:"-"`
	MIMEType  string `json:"mime_type"`
	Extension string `json:"extension"`
	Filename  string `json:"filename"`
}

var imagingFormats = map[string]imaging.Format{
	MIMEJPEG: imaging.JPEG,
	MIMEPNG:  imaging.PNG,
	MIMEGIF:  imaging.GIF,
	MIMETIFF: imaging.TIFF,
	MIMEBMP:  imaging.BMP,
}

// Encode serializes img for target. An encoder that yields no bytes is
// reported as ErrEncodingFailure.
func Encode(ctx context.Context, img image.Image, target Target) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("nil image: %w", ErrEncodingFailure)
	}

	var buf bytes.Buffer
	if err := encodeTo(&buf, img, target); err != nil {
		return nil, fmt.Errorf("encoding %s: %w", target.MIMEType, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%s: %w", target.MIMEType, ErrEncodingFailure)
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func encodeTo(buf *bytes.Buffer, img image.Image, target Target) error {
	quality := target.Quality
	if !target.UseQuality || quality <= 0 {
		quality = DefaultQuality
	}

	if target.MIMEType == MIMEWebP {
		return webp.Encode(buf, img, &webp.EncoderOptions{Quality: float32(quality)})
	}

	format, ok := imagingFormats[target.MIMEType]
	if !ok {
		return fmt.Errorf("no encoder for %q", target.MIMEType)
	}
	return imaging.Encode(buf, img, format, imaging.JPEGQuality(quality))
}
