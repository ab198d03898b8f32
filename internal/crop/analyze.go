package crop

import (
	"fmt"
	"math"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes.
const (
	CodeUpscale        = "upscale"
	CodeDownscale      = "downscale"
	CodeAspectMismatch = "aspect_mismatch"
)

// Diagnostic is advisory text about a source image. It never blocks an export.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

// aspectTolerance is how far the natural aspect ratio may drift from the
// target before the crop is reported as discarding content.
const aspectTolerance = 0.1

// Analyze inspects the natural size of a source image against spec.
func Analyze(natural Dimensions, spec OutputSpec) []Diagnostic {
	var out []Diagnostic
	w, h := float64(spec.Width), float64(spec.Height)

	if natural.Width < w || natural.Height < h {
		out = append(out, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeUpscale,
			Message: fmt.Sprintf("image is %s, smaller than the %dx%d output; it will be upscaled and may look blurry",
				natural, spec.Width, spec.Height),
		})
	}
	if natural.Width > 2*w || natural.Height > 2*h {
		out = append(out, Diagnostic{
			Severity: SeverityInfo,
			Code:     CodeDownscale,
			Message:  fmt.Sprintf("image is %s and will be downscaled to %dx%d", natural, spec.Width, spec.Height),
		})
	}
	if natural.Height > 0 {
		aspect := natural.AspectRatio()
		if math.Abs(aspect-spec.AspectRatio()) > aspectTolerance {
			out = append(out, Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeAspectMismatch,
				Message: fmt.Sprintf("image aspect ratio %.2f differs from the %.2f output; cropping will discard part of the image",
					aspect, spec.AspectRatio()),
			})
		}
	}
	return out
}
