package crop

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Exporter turns a committed crop rectangle into an encoded output raster.
type Exporter struct {
	Spec OutputSpec
}

func NewExporter(spec OutputSpec) (*Exporter, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &Exporter{Spec: spec}, nil
}

// Export crops r (in display space) out of src, scales it to the output size
// in a single pass and encodes it. The same inputs always yield the same bytes.
func (e *Exporter) Export(ctx context.Context, src image.Image, r Rect, display Dimensions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	region, err := ToNatural(r, DimensionsOf(src), display)
	if err != nil {
		return nil, err
	}
	if region.Empty() {
		return nil, fmt.Errorf("%w: empty source region %v", ErrEncodingFailure, region)
	}

	dst := image.NewRGBA(image.Rect(0, 0, e.Spec.Width, e.Spec.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, region.Add(src.Bounds().Min), draw.Src, nil)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := e.encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailure, err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) encode(w io.Writer, img image.Image) error {
	quality := int(math.Round(e.Spec.Quality * 100))
	switch e.Spec.Format {
	case FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case FormatPNG:
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, e.Spec.Format)
}
