package crop

import (
	"fmt"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// ParseFormat accepts the usual spellings of the supported formats.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Ext returns the file extension used for the format, including the dot.
func (f Format) Ext() string {
	switch f {
	case FormatPNG:
		return ".png"
	case FormatWebP:
		return ".webp"
	}
	return ".jpg"
}

// MinCropWidth is the smallest crop rectangle width, in display pixels.
const MinCropWidth = 100.0

// defaultCoverage is the share of the display width taken by a fresh crop rectangle.
const defaultCoverage = 0.9

// OutputSpec describes the raster the exporter produces.
type OutputSpec struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format Format `json:"format"`
	// Quality is in (0, 1]. Ignored for PNG.
	Quality float64 `json:"quality"`
}

// DefaultOutputSpec is the canonical publication asset: 1200x628 JPEG at 0.9.
var DefaultOutputSpec = OutputSpec{
	Width:   1200,
	Height:  628,
	Format:  FormatJPEG,
	Quality: 0.9,
}

// AspectRatio is the width/height ratio every crop rectangle is locked to.
func (s OutputSpec) AspectRatio() float64 {
	return float64(s.Width) / float64(s.Height)
}

func (s OutputSpec) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("%w: output %dx%d", ErrInvalidDimensions, s.Width, s.Height)
	}
	if _, err := ParseFormat(string(s.Format)); err != nil {
		return err
	}
	if s.Quality <= 0 || s.Quality > 1 {
		return fmt.Errorf("output quality must be in (0, 1], got %v", s.Quality)
	}
	return nil
}

func (s OutputSpec) String() string {
	return fmt.Sprintf("%dx%d %s@%.2f", s.Width, s.Height, s.Format, s.Quality)
}
