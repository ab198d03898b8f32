package crop

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/rs/zerolog/log"
)

// HandleRadius is how close, in display pixels, a pointer-down must land to a
// corner to grab its resize handle.
const HandleRadius = 12.0

// Gesture names the active pointer gesture of a session.
type Gesture string

const (
	GestureIdle     Gesture = "idle"
	GestureDragging Gesture = "dragging"
	GestureResizing Gesture = "resizing"
)

// Session is one crop editing session over a single source image. It holds
// the decoded source until Export succeeds or Close is called.
type Session struct {
	mu          sync.Mutex
	src         image.Image
	natural     Dimensions
	display     Dimensions
	state       *State
	drag        *DragController
	resize      *ResizeController
	exporter    *Exporter
	diagnostics []Diagnostic
	closed      bool
}

// NewSession fits src into viewport, places the default crop rectangle and
// computes the diagnostics for src.
func NewSession(src image.Image, viewport Dimensions, spec OutputSpec) (*Session, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no source image", ErrInvalidDimensions)
	}
	exporter, err := NewExporter(spec)
	if err != nil {
		return nil, err
	}
	natural := DimensionsOf(src)
	display, err := FitToViewport(natural, viewport)
	if err != nil {
		return nil, err
	}
	state, err := NewState(display, spec.AspectRatio())
	if err != nil {
		return nil, err
	}
	return &Session{
		src:         src,
		natural:     natural,
		display:     display,
		state:       state,
		drag:        NewDragController(state),
		resize:      NewResizeController(state),
		exporter:    exporter,
		diagnostics: Analyze(natural, spec),
	}, nil
}

// WithSession runs fn on a new session and releases the source on every
// return path.
func WithSession(src image.Image, viewport Dimensions, spec OutputSpec, fn func(s *Session) error) error {
	s, err := NewSession(src, viewport, spec)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	Natural     Dimensions   `json:"natural"`
	Display     Dimensions   `json:"display"`
	Rect        Rect         `json:"rect"`
	Gesture     Gesture      `json:"gesture"`
	Corner      string       `json:"corner,omitempty"`
	Output      OutputSpec   `json:"output"`
	Diagnostics []Diagnostic `json:"diagnostics"`
	Closed      bool         `json:"closed"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		Natural:     s.natural,
		Display:     s.display,
		Rect:        s.state.Rect(),
		Gesture:     s.gesture(),
		Output:      s.exporter.Spec,
		Diagnostics: s.diagnostics,
		Closed:      s.closed,
	}
	if s.resize.Active() {
		snap.Corner = s.resize.Corner().String()
	}
	return snap
}

func (s *Session) Rect() Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Rect()
}

func (s *Session) Natural() Dimensions       { return s.natural }
func (s *Session) Display() Dimensions       { return s.display }
func (s *Session) Spec() OutputSpec          { return s.exporter.Spec }
func (s *Session) Diagnostics() []Diagnostic { return s.diagnostics }

func (s *Session) gesture() Gesture {
	switch {
	case s.drag.Active():
		return GestureDragging
	case s.resize.Active():
		return GestureResizing
	}
	return GestureIdle
}

// PointerDown starts a gesture at p: a resize when p is on a corner handle,
// a drag when p is inside the rectangle. It is ignored while a gesture is
// already active.
func (s *Session) PointerDown(p Point) (Gesture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	if s.gesture() != GestureIdle {
		return s.gesture(), nil
	}
	if c, ok := HandleAt(s.state.Rect(), p, HandleRadius); ok {
		s.resize.Begin(c, p)
	} else {
		s.drag.Begin(p)
	}
	return s.gesture(), nil
}

// PointerDownHandle starts a resize from corner c, for hosts that hit-test
// their own handles.
func (s *Session) PointerDownHandle(c Corner, p Point) (Gesture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrSessionClosed
	}
	if s.gesture() == GestureIdle {
		s.resize.Begin(c, p)
	}
	return s.gesture(), nil
}

// PointerMove feeds p to whichever gesture is active.
func (s *Session) PointerMove(p Point) (Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Rect{}, ErrSessionClosed
	}
	switch {
	case s.drag.Active():
		r, _ := s.drag.Move(p)
		return r, nil
	case s.resize.Active():
		r, _ := s.resize.Move(p)
		return r, nil
	}
	return s.state.Rect(), nil
}

// PointerUp ends the active gesture.
func (s *Session) PointerUp() (Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Rect{}, ErrSessionClosed
	}
	s.drag.End()
	s.resize.End()
	return s.state.Rect(), nil
}

// SetRect replaces the crop rectangle with r after normalizing it.
func (s *Session) SetRect(r Rect) (Rect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Rect{}, ErrSessionClosed
	}
	return s.state.Set(r), nil
}

// Export encodes the current crop rectangle and returns it together with the
// rectangle it was taken from. On success the session is closed and the
// source released; on failure it stays open for a retry. Cancelling ctx only
// discards the result.
func (s *Session) Export(ctx context.Context) ([]byte, Rect, error) {
	var (
		out []byte
		at  Rect
	)
	err := s.ExportWith(ctx, func(r Rect, data []byte) error {
		out, at = data, r
		return nil
	})
	return out, at, err
}

// ExportWith encodes the current crop rectangle and hands it to deliver
// together with the rectangle it was taken from. The session is closed only
// once deliver succeeds, so a failed delivery can be retried.
func (s *Session) ExportWith(ctx context.Context, deliver func(r Rect, data []byte) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	src, r, display := s.src, s.state.Rect(), s.display
	s.mu.Unlock()

	out, err := s.exporter.Export(ctx, src, r, display)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("rect", r.String()).Msg("export failed")
		return err
	}
	if err := deliver(r, out); err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("rect", r.String()).Msg("delivering export failed")
		return err
	}
	log.Ctx(ctx).Debug().
		Str("rect", r.String()).
		Str("output", s.exporter.Spec.String()).
		Int("bytes", len(out)).
		Msg("exported crop")
	s.Close()
	return nil
}

// Close ends the session and releases the source image. It is safe to call
// more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.src = nil
	s.drag.End()
	s.resize.End()
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
