package crop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-3

var targetAspect = DefaultOutputSpec.AspectRatio()

func assertInvariants(t *testing.T, r Rect, display Dimensions) {
	t.Helper()
	assert.InDelta(t, targetAspect, r.AspectRatio(), tolerance, "aspect of %s", r)
	assert.GreaterOrEqual(t, r.X, 0.0, "x of %s", r)
	assert.GreaterOrEqual(t, r.Y, 0.0, "y of %s", r)
	assert.LessOrEqual(t, r.Right(), display.Width+1e-9, "right of %s", r)
	assert.LessOrEqual(t, r.Bottom(), display.Height+1e-9, "bottom of %s", r)
	assert.GreaterOrEqual(t, r.Width, MinCropWidth-1e-9, "width of %s", r)
}

func TestInitialize(t *testing.T) {
	display := Dimensions{Width: 800, Height: 400}

	r, err := Initialize(display, targetAspect)
	require.NoError(t, err)
	assert.InDelta(t, 720, r.Width, tolerance)
	assert.InDelta(t, 376.8, r.Height, tolerance)
	assert.InDelta(t, 40, r.X, tolerance)
	assert.InDelta(t, 11.6, r.Y, tolerance)
	assertInvariants(t, r, display)
}

func TestInitialize_HeightLimited(t *testing.T) {
	display := Dimensions{Width: 375, Height: 150}

	r, err := Initialize(display, targetAspect)
	require.NoError(t, err)
	assert.InDelta(t, 135, r.Height, tolerance)
	assert.InDelta(t, 135*targetAspect, r.Width, tolerance)
	assert.InDelta(t, (375-r.Width)/2, r.X, tolerance)
	assertInvariants(t, r, display)
}

func TestInitialize_RaisesToMinimumWidth(t *testing.T) {
	display := Dimensions{Width: 105, Height: 300}

	r, err := Initialize(display, targetAspect)
	require.NoError(t, err)
	assert.InDelta(t, MinCropWidth, r.Width, tolerance)
	assertInvariants(t, r, display)
}

func TestInitialize_Errors(t *testing.T) {
	_, err := Initialize(Dimensions{Width: 99, Height: 400}, targetAspect)
	assert.ErrorIs(t, err, ErrDegenerateViewport)

	_, err = Initialize(Dimensions{Width: 800, Height: 50}, targetAspect)
	assert.ErrorIs(t, err, ErrDegenerateViewport)

	_, err = Initialize(Dimensions{Width: 0, Height: 400}, targetAspect)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = Initialize(Dimensions{Width: 800, Height: 400}, 0)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}

func TestClampToBounds(t *testing.T) {
	display := Dimensions{Width: 800, Height: 400}

	tests := []struct {
		name string
		in   Rect
		want Rect
	}{
		{
			name: "inside is untouched",
			in:   Rect{X: 10, Y: 10, Width: 200, Height: 100},
			want: Rect{X: 10, Y: 10, Width: 200, Height: 100},
		},
		{
			name: "negative origin is translated",
			in:   Rect{X: -50, Y: -20, Width: 200, Height: 100},
			want: Rect{X: 0, Y: 0, Width: 200, Height: 100},
		},
		{
			name: "overflow right and bottom is translated",
			in:   Rect{X: 700, Y: 350, Width: 200, Height: 100},
			want: Rect{X: 600, Y: 300, Width: 200, Height: 100},
		},
		{
			name: "too wide shrinks proportionally",
			in:   Rect{X: 0, Y: 0, Width: 1000, Height: 250},
			want: Rect{X: 0, Y: 0, Width: 800, Height: 200},
		},
		{
			name: "too tall shrinks proportionally",
			in:   Rect{X: 100, Y: 100, Width: 600, Height: 600},
			want: Rect{X: 100, Y: 0, Width: 400, Height: 400},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampToBounds(tt.in, display)
			assert.InDelta(t, tt.want.X, got.X, tolerance)
			assert.InDelta(t, tt.want.Y, got.Y, tolerance)
			assert.InDelta(t, tt.want.Width, got.Width, tolerance)
			assert.InDelta(t, tt.want.Height, got.Height, tolerance)
		})
	}
}

func TestStateSet(t *testing.T) {
	display := Dimensions{Width: 800, Height: 400}
	s, err := NewState(display, targetAspect)
	require.NoError(t, err)

	r := s.Set(Rect{X: 700, Y: 300, Width: 300, Height: 10})
	assert.InDelta(t, 300, r.Width, tolerance)
	assert.InDelta(t, 300/targetAspect, r.Height, tolerance)
	assertInvariants(t, r, display)

	r = s.Set(Rect{X: 10, Y: 10, Width: 20, Height: 20})
	assert.InDelta(t, MinCropWidth, r.Width, tolerance)
	assertInvariants(t, r, display)

	r = s.Set(Rect{X: -10, Y: -10, Width: 5000, Height: 1})
	assert.InDelta(t, 400, r.Height, tolerance)
	assertInvariants(t, r, display)
}

func TestStateTranslate(t *testing.T) {
	display := Dimensions{Width: 800, Height: 400}
	s, err := NewState(display, targetAspect)
	require.NoError(t, err)
	before := s.Rect()

	r := s.Translate(1000, -1000)
	assert.InDelta(t, 800-before.Width, r.X, tolerance)
	assert.InDelta(t, 0, r.Y, tolerance)
	assert.Equal(t, before.Width, r.Width)
	assert.Equal(t, before.Height, r.Height)
}

func TestSetFromResize_ClipsHeightThenWidth(t *testing.T) {
	display := Dimensions{Width: 800, Height: 400}
	s, err := NewState(display, targetAspect)
	require.NoError(t, err)

	r := s.SetFromResize(SE, Point{X: 40, Y: 11.6}, 770)
	assert.InDelta(t, 388.4, r.Height, tolerance)
	assert.InDelta(t, 388.4*targetAspect, r.Width, tolerance)
	assert.InDelta(t, 40, r.X, tolerance)
	assert.InDelta(t, 11.6, r.Y, tolerance)
	assertInvariants(t, r, display)
}

func TestSetFromResize_MinimumWidth(t *testing.T) {
	display := Dimensions{Width: 800, Height: 400}
	s, err := NewState(display, targetAspect)
	require.NoError(t, err)

	anchor := Point{X: 500, Y: 300}
	r := s.SetFromResize(NW, anchor, 3)
	assert.InDelta(t, MinCropWidth, r.Width, tolerance)
	assert.InDelta(t, anchor.X, r.Right(), tolerance)
	assert.InDelta(t, anchor.Y, r.Bottom(), tolerance)
	assertInvariants(t, r, display)
}

func TestSetFromResize_UnknownCorner(t *testing.T) {
	s, err := NewState(Dimensions{Width: 800, Height: 400}, targetAspect)
	require.NoError(t, err)
	before := s.Rect()

	assert.Equal(t, before, s.SetFromResize(Corner(42), Point{}, 300))
}
