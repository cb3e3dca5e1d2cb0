package export

import (
	"bytes"
	"context"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strings"
	"testing"

	"github.com/deepteams/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	img := createTestImage(40, 30, color.NRGBA{200, 80, 20, 255})

	for _, mimeType := range []string{MIMEJPEG, MIMEPNG, MIMEGIF, MIMETIFF, MIMEBMP} {
		t.Run(mimeType, func(t *testing.T) {
			data, err := Encode(context.Background(), img, Target{MIMEType: mimeType, Quality: 80, UseQuality: true})
			require.NoError(t, err)
			assert.NotEmpty(t, data)
		})
	}

	t.Run("DecodesBack", func(t *testing.T) {
		for _, target := range []Target{
			{MIMEType: MIMEJPEG, Extension: ".jpg", Quality: 90, UseQuality: true},
			{MIMEType: MIMEPNG, Extension: ".png"},
		} {
			data, err := Encode(context.Background(), img, target)
			require.NoError(t, err)

			cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, strings.TrimPrefix(target.MIMEType, "image/"), format)
			assert.Equal(t, 40, cfg.Width)
			assert.Equal(t, 30, cfg.Height)
		}
	})

	t.Run("WebP", func(t *testing.T) {
		data, err := Encode(context.Background(), img, Target{MIMEType: MIMEWebP, Quality: 75, UseQuality: true})
		require.NoError(t, err)

		decoded, err := webp.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 40, 30), decoded.Bounds())
	})

	t.Run("PNGKeepsAlpha", func(t *testing.T) {
		blank := createTestImage(4, 4, color.NRGBA{})
		data, err := Encode(context.Background(), blank, Target{MIMEType: MIMEPNG})
		require.NoError(t, err)

		decoded, _, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		_, _, _, a := decoded.At(1, 1).RGBA()
		assert.Zero(t, a)
	})

	t.Run("LowerQualityIsSmaller", func(t *testing.T) {
		noisy := noisyImage(64, 64)
		high, err := Encode(context.Background(), noisy, Target{MIMEType: MIMEJPEG, Quality: 100, UseQuality: true})
		require.NoError(t, err)
		low, err := Encode(context.Background(), noisy, Target{MIMEType: MIMEJPEG, Quality: 10, UseQuality: true})
		require.NoError(t, err)
		assert.Less(t, len(low), len(high))
	})

	t.Run("NilImage", func(t *testing.T) {
		_, err := Encode(context.Background(), nil, Target{MIMEType: MIMEPNG})
		assert.ErrorIs(t, err, ErrEncodingFailure)
	})

	t.Run("UnsupportedMIME", func(t *testing.T) {
		_, err := Encode(context.Background(), img, Target{MIMEType: "image/avif"})
		assert.Error(t, err)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Encode(ctx, img, Target{MIMEType: MIMEPNG})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCompareFormats(t *testing.T) {
	sizes, err := CompareFormats(context.Background(), noisyImage(32, 32), 60)
	require.NoError(t, err)
	require.Len(t, sizes, 3)

	assert.Equal(t, FormatJPG, sizes[0].Format)
	assert.Equal(t, MIMEJPEG, sizes[0].MIMEType)
	assert.Equal(t, FormatPNG, sizes[1].Format)
	assert.Equal(t, FormatWebP, sizes[2].Format)
	for _, s := range sizes {
		assert.Positive(t, s.Bytes, s.Format)
	}

	_, err = CompareFormats(context.Background(), nil, 60)
	assert.ErrorIs(t, err, ErrEncodingFailure)
}
