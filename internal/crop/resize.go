package crop

import (
	"fmt"
	"math"
	"strings"
)

// Corner identifies one of the four resize handles.
type Corner int

const (
	NW Corner = iota + 1
	NE
	SW
	SE
)

// Corners lists the handles in hit-test order.
var Corners = []Corner{NW, NE, SW, SE}

func (c Corner) String() string {
	switch c {
	case NW:
		return "nw"
	case NE:
		return "ne"
	case SW:
		return "sw"
	case SE:
		return "se"
	}
	return fmt.Sprintf("corner(%d)", int(c))
}

func ParseCorner(s string) (Corner, error) {
	for _, c := range Corners {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown corner %q", s)
}

func (c Corner) MarshalText() ([]byte, error) {
	if _, ok := cornerGeometries[c]; !ok {
		return nil, fmt.Errorf("unknown corner %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Corner) UnmarshalText(b []byte) error {
	parsed, err := ParseCorner(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// cornerGeometry holds the per-corner resize arithmetic.
type cornerGeometry struct {
	// grow is the sign that turns horizontal pointer movement into a width change.
	grow float64
	// handle is the position of the dragged corner.
	handle func(r Rect) Point
	// anchor is the position of the opposite corner, which stays fixed.
	anchor func(r Rect) Point
	// room is the largest size the display leaves when growing away from anchor.
	room func(a Point, d Dimensions) (w, h float64)
	// place builds the rectangle of size w x h hanging off anchor.
	place func(a Point, w, h float64) Rect
}

var cornerGeometries = map[Corner]cornerGeometry{
	NW: {grow: -1, handle: topLeft, anchor: bottomRight, room: roomNW, place: placeNW},
	NE: {grow: 1, handle: topRight, anchor: bottomLeft, room: roomNE, place: placeNE},
	SW: {grow: -1, handle: bottomLeft, anchor: topRight, room: roomSW, place: placeSW},
	SE: {grow: 1, handle: bottomRight, anchor: topLeft, room: roomSE, place: placeSE},
}

func topLeft(r Rect) Point     { return Point{X: r.X, Y: r.Y} }
func topRight(r Rect) Point    { return Point{X: r.Right(), Y: r.Y} }
func bottomLeft(r Rect) Point  { return Point{X: r.X, Y: r.Bottom()} }
func bottomRight(r Rect) Point { return Point{X: r.Right(), Y: r.Bottom()} }

func roomNW(a Point, _ Dimensions) (float64, float64) { return a.X, a.Y }
func roomNE(a Point, d Dimensions) (float64, float64) { return d.Width - a.X, a.Y }
func roomSW(a Point, d Dimensions) (float64, float64) { return a.X, d.Height - a.Y }
func roomSE(a Point, d Dimensions) (float64, float64) { return d.Width - a.X, d.Height - a.Y }

func placeNW(a Point, w, h float64) Rect { return Rect{X: a.X - w, Y: a.Y - h, Width: w, Height: h} }
func placeNE(a Point, w, h float64) Rect { return Rect{X: a.X, Y: a.Y - h, Width: w, Height: h} }
func placeSW(a Point, w, h float64) Rect { return Rect{X: a.X - w, Y: a.Y, Width: w, Height: h} }
func placeSE(a Point, w, h float64) Rect { return Rect{X: a.X, Y: a.Y, Width: w, Height: h} }

// HandlePosition returns where the handle for corner c is drawn on r.
func HandlePosition(r Rect, c Corner) (Point, bool) {
	g, ok := cornerGeometries[c]
	if !ok {
		return Point{}, false
	}
	return g.handle(r), true
}

// HandleAt returns the corner handle of r within radius of p. When handles
// overlap, the closest one wins.
func HandleAt(r Rect, p Point, radius float64) (Corner, bool) {
	var (
		found Corner
		best  = math.Inf(1)
	)
	for _, c := range Corners {
		h := cornerGeometries[c].handle(r)
		d := math.Hypot(p.X-h.X, p.Y-h.Y)
		if d <= radius && d < best {
			found, best = c, d
		}
	}
	return found, found != 0
}

// ResizeController drives an aspect-locked resize from one corner.
// States: idle -> resizing(corner) -> idle.
type ResizeController struct {
	state   *State
	active  bool
	corner  Corner
	anchor  Point
	start   Point
	initial Rect
}

func NewResizeController(state *State) *ResizeController {
	return &ResizeController{state: state}
}

func (c *ResizeController) Active() bool { return c.active }

// Corner returns the handle being dragged, or zero when idle.
func (c *ResizeController) Corner() Corner {
	if !c.active {
		return 0
	}
	return c.corner
}

// Begin starts resizing from corner with the pointer at p. It reports false
// when a resize is already in progress or corner is unknown.
func (c *ResizeController) Begin(corner Corner, p Point) bool {
	g, ok := cornerGeometries[corner]
	if c.active || !ok {
		return false
	}
	c.initial = c.state.Rect()
	c.anchor = g.anchor(c.initial)
	c.corner = corner
	c.start = p
	c.active = true
	return true
}

// Move applies the pointer at p to the active resize and returns the new
// rectangle. Only horizontal movement drives the size.
func (c *ResizeController) Move(p Point) (Rect, bool) {
	if !c.active {
		return c.state.Rect(), false
	}
	dx := p.X - c.start.X
	width := c.initial.Width + cornerGeometries[c.corner].grow*dx
	return c.state.SetFromResize(c.corner, c.anchor, width), true
}

func (c *ResizeController) End() {
	c.active = false
	c.corner = 0
}
