package crop

import (
	"fmt"
	"image"
	"math"
)

// Dimensions is a width/height pair, used for both natural and display sizes.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DimensionsOf returns the natural dimensions of img.
func DimensionsOf(img image.Image) Dimensions {
	b := img.Bounds()
	return Dimensions{Width: float64(b.Dx()), Height: float64(b.Dy())}
}

func (d Dimensions) Validate() error {
	if !(d.Width > 0) || !(d.Height > 0) {
		return fmt.Errorf("%w: %vx%v", ErrInvalidDimensions, d.Width, d.Height)
	}
	return nil
}

func (d Dimensions) AspectRatio() float64 {
	return d.Width / d.Height
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%gx%g", d.Width, d.Height)
}

// Point is a position in display space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a crop rectangle in display-space pixels.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

func (r Rect) AspectRatio() float64 {
	return r.Width / r.Height
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

func (r Rect) String() string {
	return fmt.Sprintf("rect(x=%.2f,y=%.2f,w=%.2f,h=%.2f)", r.X, r.Y, r.Width, r.Height)
}

// FitToViewport uniformly scales natural down so that it fits inside
// maxViewport. Images that already fit are returned unchanged.
func FitToViewport(natural, maxViewport Dimensions) (Dimensions, error) {
	if err := natural.Validate(); err != nil {
		return Dimensions{}, fmt.Errorf("natural size: %w", err)
	}
	if err := maxViewport.Validate(); err != nil {
		return Dimensions{}, fmt.Errorf("viewport: %w", err)
	}
	if natural.Width <= maxViewport.Width && natural.Height <= maxViewport.Height {
		return natural, nil
	}

	// The binding side is pinned to the viewport exactly, so mapping the full
	// display rectangle back to natural space is lossless.
	if natural.Width*maxViewport.Height >= natural.Height*maxViewport.Width {
		return Dimensions{
			Width:  maxViewport.Width,
			Height: natural.Height * maxViewport.Width / natural.Width,
		}, nil
	}
	return Dimensions{
		Width:  natural.Width * maxViewport.Height / natural.Height,
		Height: maxViewport.Height,
	}, nil
}

// roundingSlack absorbs float error before flooring, so 2.9999999 maps to 3.
const roundingSlack = 1e-6

// ToNatural maps a display-space rectangle onto integer pixel coordinates of
// the natural image. The result never extends past the natural bounds.
func ToNatural(r Rect, natural, display Dimensions) (image.Rectangle, error) {
	if err := natural.Validate(); err != nil {
		return image.Rectangle{}, fmt.Errorf("natural size: %w", err)
	}
	if err := display.Validate(); err != nil {
		return image.Rectangle{}, fmt.Errorf("display size: %w", err)
	}
	sx := natural.Width / display.Width
	sy := natural.Height / display.Height

	maxX := int(math.Round(natural.Width))
	maxY := int(math.Round(natural.Height))

	x0 := clampInt(int(math.Floor(r.X*sx+roundingSlack)), 0, maxX)
	y0 := clampInt(int(math.Floor(r.Y*sy+roundingSlack)), 0, maxY)
	w := int(math.Round(r.Width * sx))
	h := int(math.Round(r.Height * sy))

	x1 := clampInt(x0+w, x0, maxX)
	y1 := clampInt(y0+h, y0, maxY)
	return image.Rect(x0, y0, x1, y1), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
