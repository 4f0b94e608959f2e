// Package engine defines the boundary to the document-understanding engine:
// the labeled, positioned element stream the pipeline consumes, and the
// interface any recognition backend has to satisfy. The pipeline treats the
// engine as a black box; everything engine-specific stays behind Recognize.
package engine

import (
	"context"

	"github.com/MeKo-Tech/docslice/internal/geometry"
)

// Box is one bounding box occurrence of an element, in the engine's native
// coordinate frame.
type Box struct {
	PageNo int
	BBox   geometry.BBox
	Origin geometry.CoordOrigin
}

// Element is one recognized unit from the engine's output stream. Elements
// form a forest over native ids; parents may be filtered out upstream, so a
// NativeParentID is not guaranteed to match an emitted element.
type Element struct {
	NativeID       string
	NativeParentID string // empty for roots
	Level          int    // hierarchy depth as reported by the engine
	Label          string // open vocabulary; unknown labels are passed through downstream
	Text           string
	TableCells     [][]string // nil unless the element is a table
	CaptionID      string     // native id of a linked caption element, if any
	Boxes          []Box      // emission order, may span pages
}

// PageInfo is the engine's page metadata.
type PageInfo struct {
	PageNo int
	Width  float64
	Height float64
}

// Result is the complete recognition output for one document.
type Result struct {
	TotalPages int
	Pages      []PageInfo
	Elements   []Element // document emission order
}

// Options control a recognition pass.
type Options struct {
	Mode      string // speed, accuracy or hybrid; interpretation is backend-specific
	FirstPage int    // 1-based inclusive
	LastPage  int    // inclusive
}

// Engine runs document understanding over raw document bytes. Recognize is
// invoked once per document; it is the dominant-cost step and must honor
// context cancellation.
type Engine interface {
	Recognize(ctx context.Context, data []byte, opts Options) (*Result, error)
}
