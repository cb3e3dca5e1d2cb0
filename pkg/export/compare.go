package export

import (
	"context"
	"image"

	"github.com/dixieflatline76/Retouch/util/log"
	"golang.org/x/sync/errgroup"
)

// FormatSize is the encoded size of an image in one format.
type FormatSize struct {
	Format   Format `json:"format"`
	MIMEType string `json:"mime_type"`
	Bytes    int    `json:"bytes"`
}

var comparedFormats = []Format{FormatJPG, FormatPNG, FormatWebP}

// CompareFormats encodes img as jpg, png and webp concurrently and returns
// the sizes in that order.
func CompareFormats(ctx context.Context, img image.Image, quality int) ([]FormatSize, error) {
	sizes := make([]FormatSize, len(comparedFormats))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(len(comparedFormats))

	for i, f := range comparedFormats {
		g.Go(func() error {
			target := Resolve(Settings{Format: f, Quality: quality}, false, Native{})
			data, err := Encode(ctx, img, target)
			if err != nil {
				log.Printf("Export: comparing %s failed: %v", f, err)
				return err
			}
			sizes[i] = FormatSize{Format: f, MIMEType: target.MIMEType, Bytes: len(data)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sizes, nil
}
