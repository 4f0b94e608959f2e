package geometry

import (
	"fmt"
	"math"
)

// CoordOrigin identifies where (0,0) lies on a page.
type CoordOrigin string

const (
	// TopLeft means y grows downwards from the top edge.
	TopLeft CoordOrigin = "TOPLEFT"
	// BottomLeft means y grows upwards from the bottom edge.
	BottomLeft CoordOrigin = "BOTTOMLEFT"
)

// Valid reports whether the origin is one of the known conventions.
func (o CoordOrigin) Valid() bool {
	return o == TopLeft || o == BottomLeft
}

// BBox is an axis-aligned bounding box in page coordinates. The meaning of
// Top and Bottom depends on the coordinate origin: with TopLeft, Top <= Bottom;
// with BottomLeft, Top >= Bottom.
type BBox struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 {
	return b.Right - b.Left
}

// Height returns the vertical extent of the box regardless of origin.
func (b BBox) Height() float64 {
	return math.Abs(b.Top - b.Bottom)
}

// Validate checks that the box is well-formed for the given origin.
func Validate(b BBox, origin CoordOrigin) error {
	for _, v := range []float64{b.Top, b.Right, b.Bottom, b.Left} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("bbox contains non-finite coordinate: %+v", b)
		}
	}
	if !origin.Valid() {
		return fmt.Errorf("unknown coordinate origin %q", origin)
	}
	if b.Right < b.Left {
		return fmt.Errorf("bbox right %.2f < left %.2f", b.Right, b.Left)
	}
	switch origin {
	case TopLeft:
		if b.Bottom < b.Top {
			return fmt.Errorf("top-left bbox bottom %.2f < top %.2f", b.Bottom, b.Top)
		}
	case BottomLeft:
		if b.Top < b.Bottom {
			return fmt.Errorf("bottom-left bbox top %.2f < bottom %.2f", b.Top, b.Bottom)
		}
	}
	return nil
}

// Convert transforms a box from one coordinate origin to another. The
// transform is its own inverse: converting back with the same page height
// reproduces the original coordinates exactly. It fails on malformed input
// rather than producing a silently wrong box.
func Convert(b BBox, from, to CoordOrigin, pageHeight float64) (BBox, error) {
	if err := Validate(b, from); err != nil {
		return BBox{}, err
	}
	if !to.Valid() {
		return BBox{}, fmt.Errorf("unknown coordinate origin %q", to)
	}
	if from == to {
		return b, nil
	}
	if math.IsNaN(pageHeight) || pageHeight <= 0 {
		return BBox{}, fmt.Errorf("invalid page height %.2f", pageHeight)
	}
	// Flipping the vertical axis swaps the roles of top and bottom.
	return BBox{
		Top:    pageHeight - b.Top,
		Right:  b.Right,
		Bottom: pageHeight - b.Bottom,
		Left:   b.Left,
	}, nil
}

// Round rounds all coordinates to the given number of decimal places.
func Round(b BBox, precision int) BBox {
	f := math.Pow10(precision)
	return BBox{
		Top:    math.Round(b.Top*f) / f,
		Right:  math.Round(b.Right*f) / f,
		Bottom: math.Round(b.Bottom*f) / f,
		Left:   math.Round(b.Left*f) / f,
	}
}
