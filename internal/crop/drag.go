package crop

// DragController translates the crop rectangle with the pointer.
// States: idle -> dragging -> idle.
type DragController struct {
	state    *State
	dragging bool
	offset   Point
}

func NewDragController(state *State) *DragController {
	return &DragController{state: state}
}

func (c *DragController) Active() bool { return c.dragging }

// Begin starts a drag when p lies inside the current rectangle, remembering
// where inside the rectangle it was grabbed.
func (c *DragController) Begin(p Point) bool {
	if c.dragging {
		return false
	}
	r := c.state.Rect()
	if !r.Contains(p) {
		return false
	}
	c.offset = Point{X: p.X - r.X, Y: p.Y - r.Y}
	c.dragging = true
	return true
}

// Move places the rectangle's origin at p minus the grab offset, clamped to
// the display.
func (c *DragController) Move(p Point) (Rect, bool) {
	if !c.dragging {
		return c.state.Rect(), false
	}
	return c.state.Translate(p.X-c.offset.X, p.Y-c.offset.Y), true
}

func (c *DragController) End() {
	c.dragging = false
	c.offset = Point{}
}
