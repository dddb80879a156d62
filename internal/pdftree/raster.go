package pdftree

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/jackzampolin/doctag/internal/doc"
)

// Rasterize renders the region to a JPEG at the given DPI. The region is in
// PDF user space (origin bottom-left); the rendered page has its origin at
// the top-left, so the vertical axis is flipped using the page height.
func (d *document) Rasterize(ctx context.Context, r doc.Region, dpi float64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Page < 0 || r.Page >= len(d.pageHeights) {
		return nil, fmt.Errorf("page %d out of range", r.Page+1)
	}

	img, err := d.fz.ImageDPI(r.Page, dpi)
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", r.Page+1, err)
	}

	scale := dpi / 72.0
	pageH := d.pageHeights[r.Page]
	crop := image.Rect(
		int(math.Floor(r.Llx*scale)),
		int(math.Floor((pageH-r.Ury)*scale)),
		int(math.Ceil(r.Urx*scale)),
		int(math.Ceil((pageH-r.Lly)*scale)),
	).Intersect(img.Bounds())
	if crop.Empty() {
		return nil, fmt.Errorf("region %v lies outside page %d", r, r.Page+1)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img.SubImage(crop), &jpeg.Options{Quality: d.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode region: %w", err)
	}
	return buf.Bytes(), nil
}
