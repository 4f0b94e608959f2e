// Package assemble turns the recognition engine's element stream into the
// public page/slice tree: reference and sequence allocation, label-dependent
// content shaping, coordinate reconciliation, page grouping and on-demand
// rendering.
package assemble

import (
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/engine"
	"github.com/MeKo-Tech/docslice/internal/geometry"
	"github.com/MeKo-Tech/docslice/internal/pdf"
	"github.com/MeKo-Tech/docslice/internal/refs"
)

// content is the internal variant-typed payload of a slice. The wire shape
// flattens it to nullable fields; inside the pipeline the kind stays
// explicit.
type content interface {
	apply(s *document.Slice)
}

type textContent struct {
	text string
}

func (c textContent) apply(s *document.Slice) {
	if c.text != "" {
		s.ContentText = &c.text
	}
}

type tableContent struct {
	grid     [][]string
	markdown string
}

func (c tableContent) apply(s *document.Slice) {
	s.TableData = c.grid
	if c.markdown != "" {
		s.ContentMarkdown = &c.markdown
	}
}

type pictureContent struct{}

func (c pictureContent) apply(s *document.Slice) {}

// builderConfig controls content shaping.
type builderConfig struct {
	origin    geometry.CoordOrigin // public coordinate frame
	precision int                  // bbox decimal places
	markdown  bool                 // render table grids to markdown too
}

// buildSlice maps one engine element onto exactly one public slice. The
// allocator must already have been fed the element (Track + Allocate).
// captionText is the resolved text of a linked caption element, if any.
func buildSlice(el engine.Element, alloc *refs.Allocator, pages map[int]engine.PageInfo, captionText string, cfg builderConfig) document.Slice {
	ref, _ := alloc.Allocated(el.NativeID)
	s := document.Slice{
		Level:    el.Level,
		Ref:      ref,
		Sequence: alloc.NextSequence(),
		Label:    mapLabel(el.Label),
	}

	if parentRef, ok := alloc.ResolveParent(el.NativeParentID); ok {
		s.ParentRef = &parentRef
	}

	sliceContent(el, s.Label, cfg).apply(&s)

	if captionText != "" && (s.Label == document.LabelTable || s.Label == document.LabelPicture) {
		cleaned := pdf.CleanText(captionText)
		if cleaned != "" {
			s.CaptionText = &cleaned
		}
	}

	s.Positions = buildPositions(el.Boxes, pages, cfg)
	return s
}

// mapLabel narrows the engine's open label vocabulary to the public set.
// Unknown labels pass through as generic; the element is never dropped.
func mapLabel(label string) document.Label {
	l := document.Label(label)
	if l.Known() {
		return l
	}
	return document.LabelGeneric
}

// sliceContent picks the variant payload for a label.
func sliceContent(el engine.Element, label document.Label, cfg builderConfig) content {
	switch label {
	case document.LabelTable:
		grid := rectangular(el.TableCells)
		tc := tableContent{grid: grid}
		if cfg.markdown && len(grid) > 0 {
			tc.markdown = markdownTable(grid)
		}
		return tc
	case document.LabelPicture:
		return pictureContent{}
	default:
		// Headings, paragraphs, list items, captions and anything generic
		// carry plain text.
		return textContent{text: pdf.CleanText(el.Text)}
	}
}

// buildPositions converts the element's native boxes into the public
// coordinate frame. A box that fails conversion is reported and replaced by a
// malformed position that keeps the page attribution, so the slice still
// appears on every page it touches even when no box survives.
func buildPositions(boxes []engine.Box, pages map[int]engine.PageInfo, cfg builderConfig) []document.Position {
	positions := make([]document.Position, 0, len(boxes))
	for _, box := range boxes {
		page, ok := pages[box.PageNo]
		if !ok {
			slog.Warn("No page metadata for bounding box", "page", box.PageNo)
			positions = append(positions, malformedPosition(box.PageNo, cfg.origin))
			continue
		}
		converted, err := geometry.Convert(box.BBox, box.Origin, cfg.origin, page.Height)
		if err != nil {
			slog.Warn("Malformed bounding box", "page", box.PageNo, "error", err)
			positions = append(positions, malformedPosition(box.PageNo, cfg.origin))
			continue
		}
		converted = geometry.Round(converted, cfg.precision)
		positions = append(positions, document.Position{
			PageNo:      box.PageNo,
			Top:         converted.Top,
			Right:       converted.Right,
			Bottom:      converted.Bottom,
			Left:        converted.Left,
			CoordOrigin: cfg.origin,
		})
	}
	return positions
}

func malformedPosition(pageNo int, origin geometry.CoordOrigin) document.Position {
	return document.Position{PageNo: pageNo, CoordOrigin: origin, Malformed: true}
}

// rectangular pads ragged table rows so every row has the same length and
// cleans cell text.
func rectangular(cells [][]string) [][]string {
	if len(cells) == 0 {
		return nil
	}
	width := 0
	for _, row := range cells {
		if len(row) > width {
			width = len(row)
		}
	}
	grid := make([][]string, len(cells))
	for i, row := range cells {
		grid[i] = make([]string, width)
		for j, cell := range row {
			grid[i][j] = pdf.CleanText(cell)
		}
	}
	return grid
}

// markdownTable renders a grid as a pipe table. The first row is treated as
// the header; the separator is synthesized from the column count.
func markdownTable(grid [][]string) string {
	var sb strings.Builder
	width := len(grid[0])

	writeRow := func(row []string) {
		sb.WriteString("|")
		for _, cell := range row {
			sb.WriteString(" ")
			sb.WriteString(strings.ReplaceAll(cell, "|", "\\|"))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(grid[0])
	sb.WriteString("|")
	for i := 0; i < width; i++ {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range grid[1:] {
		writeRow(row)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
