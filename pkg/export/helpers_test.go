package export

import (
	"image"
	"image/color"
	"image/draw"
)

func createTestImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// noisyImage has enough detail for quality settings to change output size.
func noisyImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	seed := uint32(7)
	for i := 0; i < len(img.Pix); i += 4 {
		seed = seed*1664525 + 1013904223
		img.Pix[i] = uint8(seed >> 24)
		img.Pix[i+1] = uint8(seed >> 16)
		img.Pix[i+2] = uint8(seed >> 8)
		img.Pix[i+3] = 255
	}
	return img
}
