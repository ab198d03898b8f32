package crop

import "errors"

var (
	// ErrInvalidDimensions is returned when a width or height is not positive.
	ErrInvalidDimensions = errors.New("invalid dimensions")

	// ErrDegenerateViewport is returned when the display area cannot hold a
	// crop rectangle of MinCropWidth at the target aspect ratio.
	ErrDegenerateViewport = errors.New("viewport too small for crop rectangle")

	// ErrEncodingFailure is returned when the output raster cannot be produced.
	// The session stays open so the export can be retried.
	ErrEncodingFailure = errors.New("encoding failed")

	ErrSessionClosed = errors.New("session closed")

	ErrUnsupportedFormat = errors.New("unsupported output format")
)
