package crop

import (
	"fmt"
	"math"
)

// State owns the crop rectangle of one editing session. Every write keeps the
// rectangle at the target aspect ratio, inside the display and at least
// MinCropWidth wide.
type State struct {
	display Dimensions
	aspect  float64
	rect    Rect
}

// NewState creates a state holding the default rectangle for display.
func NewState(display Dimensions, aspect float64) (*State, error) {
	r, err := Initialize(display, aspect)
	if err != nil {
		return nil, err
	}
	return &State{display: display, aspect: aspect, rect: r}, nil
}

// Initialize returns a centered rectangle spanning 90% of the display width,
// or 90% of its height when the width-based rectangle would not fit vertically.
func Initialize(display Dimensions, aspect float64) (Rect, error) {
	if err := display.Validate(); err != nil {
		return Rect{}, err
	}
	if !(aspect > 0) || math.IsInf(aspect, 0) {
		return Rect{}, fmt.Errorf("%w: aspect ratio %v", ErrInvalidDimensions, aspect)
	}
	if display.Width < MinCropWidth || display.Height < MinCropWidth/aspect {
		return Rect{}, fmt.Errorf("%w: display %s cannot hold %gpx at ratio %.4f",
			ErrDegenerateViewport, display, MinCropWidth, aspect)
	}

	w := display.Width * defaultCoverage
	h := w / aspect
	if h > display.Height {
		h = display.Height * defaultCoverage
		w = h * aspect
	}
	if w < MinCropWidth {
		w = MinCropWidth
		h = w / aspect
	}
	return Rect{
		X:      (display.Width - w) / 2,
		Y:      (display.Height - h) / 2,
		Width:  w,
		Height: h,
	}, nil
}

// ClampToBounds fits r inside [0,0]..[display.Width,display.Height]. An
// oversized rectangle is shrunk proportionally before it is translated, so its
// aspect ratio does not change. r must have a positive size.
func ClampToBounds(r Rect, display Dimensions) Rect {
	aspect := r.AspectRatio()
	if r.Width > display.Width {
		r.Width = display.Width
		r.Height = r.Width / aspect
	}
	if r.Height > display.Height {
		r.Height = display.Height
		r.Width = r.Height * aspect
	}
	r.X = clamp(finite(r.X), 0, display.Width-r.Width)
	r.Y = clamp(finite(r.Y), 0, display.Height-r.Height)
	return r
}

func (s *State) Rect() Rect           { return s.rect }
func (s *State) Display() Dimensions  { return s.display }
func (s *State) AspectRatio() float64 { return s.aspect }

// Set replaces the rectangle with r, normalized to the aspect ratio by its
// width and clamped to the display.
func (s *State) Set(r Rect) Rect {
	w := r.Width
	if !(w >= MinCropWidth) || math.IsInf(w, 0) {
		w = MinCropWidth
	}
	s.rect = ClampToBounds(Rect{X: r.X, Y: r.Y, Width: w, Height: w / s.aspect}, s.display)
	return s.rect
}

// Translate moves the rectangle so its origin is at (x, y), clamped so the
// rectangle stays inside the display. The size never changes.
func (s *State) Translate(x, y float64) Rect {
	s.rect.X = clamp(finite(x), 0, s.display.Width-s.rect.Width)
	s.rect.Y = clamp(finite(y), 0, s.display.Height-s.rect.Height)
	return s.rect
}

// SetFromResize resizes the rectangle while the corner opposite to c stays at
// anchor. Width is the free variable; height always follows from the aspect
// ratio. A request that overflows the room left by the anchor is clipped on
// height first and then on width, re-deriving the other side each time.
func (s *State) SetFromResize(c Corner, anchor Point, proposedWidth float64) Rect {
	g, ok := cornerGeometries[c]
	if !ok {
		return s.rect
	}
	w := proposedWidth
	if !(w >= MinCropWidth) {
		w = MinCropWidth
	}
	h := w / s.aspect

	roomW, roomH := g.room(anchor, s.display)
	if h > roomH {
		h = roomH
		w = h * s.aspect
	}
	if w > roomW {
		w = roomW
		h = w / s.aspect
	}
	if w < MinCropWidth {
		// Only reachable with an anchor that never belonged to a valid
		// rectangle; the anchor gives way to the minimum size.
		w = MinCropWidth
		h = w / s.aspect
	}
	s.rect = ClampToBounds(g.place(anchor, w, h), s.display)
	return s.rect
}

func finite(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
