package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		box     BBox
		origin  CoordOrigin
		wantErr bool
	}{
		{"valid top-left", BBox{Top: 10, Right: 100, Bottom: 30, Left: 20}, TopLeft, false},
		{"valid bottom-left", BBox{Top: 700, Right: 100, Bottom: 650, Left: 20}, BottomLeft, false},
		{"right before left", BBox{Top: 10, Right: 5, Bottom: 30, Left: 20}, TopLeft, true},
		{"inverted top-left", BBox{Top: 30, Right: 100, Bottom: 10, Left: 20}, TopLeft, true},
		{"inverted bottom-left", BBox{Top: 10, Right: 100, Bottom: 30, Left: 20}, BottomLeft, true},
		{"nan coordinate", BBox{Top: math.NaN(), Right: 100, Bottom: 30, Left: 20}, TopLeft, true},
		{"infinite coordinate", BBox{Top: 10, Right: math.Inf(1), Bottom: 30, Left: 20}, TopLeft, true},
		{"unknown origin", BBox{Top: 10, Right: 100, Bottom: 30, Left: 20}, CoordOrigin("CENTER"), true},
		{"zero-area box allowed", BBox{Top: 10, Right: 20, Bottom: 10, Left: 20}, TopLeft, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.box, tt.origin)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConvertFlipsOrigin(t *testing.T) {
	// A box 50pt below the top edge of a 792pt page.
	box := BBox{Top: 50, Right: 500, Bottom: 70, Left: 100}
	flipped, err := Convert(box, TopLeft, BottomLeft, 792)
	require.NoError(t, err)
	assert.InDelta(t, 742, flipped.Top, 1e-9)
	assert.InDelta(t, 722, flipped.Bottom, 1e-9)
	assert.Equal(t, box.Left, flipped.Left)
	assert.Equal(t, box.Right, flipped.Right)
	require.NoError(t, Validate(flipped, BottomLeft))
}

func TestConvertIdentity(t *testing.T) {
	box := BBox{Top: 50, Right: 500, Bottom: 70, Left: 100}
	same, err := Convert(box, TopLeft, TopLeft, 792)
	require.NoError(t, err)
	assert.Equal(t, box, same)
}

func TestConvertRoundTrip(t *testing.T) {
	// Round-tripping through the other origin must reproduce the exact
	// coordinates, not an approximation.
	box := BBox{Top: 612.37, Right: 480.21, Bottom: 590.04, Left: 72.5}
	down, err := Convert(box, BottomLeft, TopLeft, 792)
	require.NoError(t, err)
	back, err := Convert(down, TopLeft, BottomLeft, 792)
	require.NoError(t, err)
	assert.Equal(t, box, back)
}

func TestConvertRejectsBadInput(t *testing.T) {
	box := BBox{Top: 50, Right: 500, Bottom: 70, Left: 100}
	_, err := Convert(box, TopLeft, BottomLeft, 0)
	assert.Error(t, err)
	_, err = Convert(box, TopLeft, BottomLeft, math.NaN())
	assert.Error(t, err)
	_, err = Convert(BBox{Top: math.NaN()}, TopLeft, BottomLeft, 792)
	assert.Error(t, err)
}

func TestRound(t *testing.T) {
	box := BBox{Top: 1.23456, Right: 2.34567, Bottom: 3.45678, Left: 4.56789}
	rounded := Round(box, 2)
	assert.Equal(t, BBox{Top: 1.23, Right: 2.35, Bottom: 3.46, Left: 4.57}, rounded)
}

func TestDimensions(t *testing.T) {
	box := BBox{Top: 50, Right: 500, Bottom: 70, Left: 100}
	assert.InDelta(t, 400, box.Width(), 1e-9)
	assert.InDelta(t, 20, box.Height(), 1e-9)

	up := BBox{Top: 742, Right: 500, Bottom: 722, Left: 100}
	assert.InDelta(t, 20, up.Height(), 1e-9)
}
