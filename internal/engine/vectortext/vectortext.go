// Package vectortext implements the recognition engine boundary on top of
// embedded PDF text. It reads positioned glyph runs, groups them into lines
// and blocks, and emits labeled elements with native-frame bounding boxes.
// Scanned documents without embedded text yield empty pages; an OCR-backed
// engine is the intended fallback for those.
package vectortext

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	dpdf "github.com/dslipak/pdf"

	"github.com/MeKo-Tech/docslice/internal/engine"
	"github.com/MeKo-Tech/docslice/internal/geometry"
	"github.com/MeKo-Tech/docslice/internal/pdf"
)

const (
	// Blocks separated by less than this multiple of the line height are
	// merged into one element.
	blockGapFactor = 1.4
	// Line grouping tolerance as a fraction of the font size.
	lineYTolerance = 0.5
	// Font-size ratio over the body size that marks a heading.
	headingRatio = 1.15
	// Font-size ratio over the body size that marks the document title.
	titleRatio = 1.5
)

// Engine extracts vector text from PDFs. The zero value is usable.
type Engine struct{}

// New returns a vector-text engine.
func New() *Engine {
	return &Engine{}
}

// Recognize implements engine.Engine.
func (e *Engine) Recognize(ctx context.Context, data []byte, opts engine.Options) (*engine.Result, error) {
	reader, err := dpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	totalPages := reader.NumPage()
	first, last, err := pdf.NormalizeRange(opts.FirstPage, opts.LastPage, totalPages)
	if err != nil {
		return nil, err
	}

	dims, err := pdf.PageDimensions(data)
	if err != nil {
		// Geometry query failure is not fatal; letter-size fallback keeps
		// coordinate conversion well-defined.
		slog.Warn("Failed to read page dimensions, assuming letter size", "error", err)
		dims = map[int]pdf.Dim{}
	}

	result := &engine.Result{TotalPages: totalPages}
	classify := opts.Mode != "speed"

	for pageNo := first; pageNo <= last; pageNo++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dim, ok := dims[pageNo]
		if !ok {
			dim = pdf.Dim{Width: 612, Height: 792}
		}
		result.Pages = append(result.Pages, engine.PageInfo{
			PageNo: pageNo,
			Width:  dim.Width,
			Height: dim.Height,
		})

		texts, err := pageTexts(reader, pageNo)
		if err != nil {
			slog.Warn("Skipping unreadable page", "page", pageNo, "error", err)
			continue
		}

		blocks := groupBlocks(groupLines(texts))
		result.Elements = append(result.Elements, labelBlocks(blocks, pageNo, classify)...)
	}

	return result, nil
}

// pageTexts returns the positioned glyph runs of one page. The underlying
// content-stream parser panics on malformed streams, so the call is fenced.
func pageTexts(reader *dpdf.Reader, pageNo int) (texts []dpdf.Text, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("content stream parse failure on page %d: %v", pageNo, r)
		}
	}()
	page := reader.Page(pageNo)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", pageNo)
	}
	return page.Content().Text, nil
}

// line is a horizontal run of glyphs sharing a baseline.
type line struct {
	texts    []dpdf.Text
	baseline float64
	fontSize float64
}

func (l *line) text() string {
	var sb strings.Builder
	var prevEnd float64
	for i, t := range l.texts {
		// Re-insert the spaces the content stream drops between runs.
		if i > 0 && t.X-prevEnd > t.FontSize*0.2 && !strings.HasSuffix(sb.String(), " ") {
			sb.WriteString(" ")
		}
		sb.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	return sb.String()
}

func (l *line) bbox() geometry.BBox {
	b := geometry.BBox{Top: l.baseline + l.fontSize, Bottom: l.baseline, Left: l.texts[0].X, Right: l.texts[0].X}
	for _, t := range l.texts {
		if t.X < b.Left {
			b.Left = t.X
		}
		if t.X+t.W > b.Right {
			b.Right = t.X + t.W
		}
		if t.Y < b.Bottom {
			b.Bottom = t.Y
		}
		if t.Y+t.FontSize > b.Top {
			b.Top = t.Y + t.FontSize
		}
	}
	return b
}

// groupLines buckets glyph runs by baseline. PDF y grows upwards, so sorting
// by descending baseline yields top-to-bottom reading order.
func groupLines(texts []dpdf.Text) []*line {
	var lines []*line
	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		var target *line
		for _, l := range lines {
			tol := l.fontSize * lineYTolerance
			if tol == 0 {
				tol = 2
			}
			if t.Y >= l.baseline-tol && t.Y <= l.baseline+tol {
				target = l
				break
			}
		}
		if target == nil {
			target = &line{baseline: t.Y, fontSize: t.FontSize}
			lines = append(lines, target)
		}
		target.texts = append(target.texts, t)
		if t.FontSize > target.fontSize {
			target.fontSize = t.FontSize
		}
	}
	for _, l := range lines {
		sort.SliceStable(l.texts, func(i, j int) bool { return l.texts[i].X < l.texts[j].X })
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].baseline > lines[j].baseline })
	return lines
}

// block is a paragraph-level group of consecutive lines.
type block struct {
	lines    []*line
	fontSize float64
}

func (b *block) text() string {
	parts := make([]string, 0, len(b.lines))
	for _, l := range b.lines {
		parts = append(parts, l.text())
	}
	return strings.Join(parts, " ")
}

func (b *block) bbox() geometry.BBox {
	box := b.lines[0].bbox()
	for _, l := range b.lines[1:] {
		lb := l.bbox()
		if lb.Left < box.Left {
			box.Left = lb.Left
		}
		if lb.Right > box.Right {
			box.Right = lb.Right
		}
		if lb.Top > box.Top {
			box.Top = lb.Top
		}
		if lb.Bottom < box.Bottom {
			box.Bottom = lb.Bottom
		}
	}
	return box
}

// groupBlocks merges vertically adjacent lines of similar size into blocks.
func groupBlocks(lines []*line) []*block {
	var blocks []*block
	var cur *block
	for _, l := range lines {
		if cur != nil {
			prev := cur.lines[len(cur.lines)-1]
			gap := prev.baseline - l.baseline
			sameSize := l.fontSize > cur.fontSize*0.85 && l.fontSize < cur.fontSize*1.15
			if sameSize && gap > 0 && gap <= cur.fontSize*blockGapFactor {
				cur.lines = append(cur.lines, l)
				continue
			}
		}
		cur = &block{lines: []*line{l}, fontSize: l.fontSize}
		blocks = append(blocks, cur)
	}
	return blocks
}

// labelBlocks converts blocks to engine elements. With classification on,
// headings open a subtree that following blocks attach to; with it off every
// block is a flat text element.
func labelBlocks(blocks []*block, pageNo int, classify bool) []engine.Element {
	bodySize := bodyFontSize(blocks)
	var elements []engine.Element
	var parentID string

	for i, b := range blocks {
		nativeID := fmt.Sprintf("#/pages/%d/blocks/%d", pageNo, i)
		el := engine.Element{
			NativeID: nativeID,
			Level:    1,
			Label:    "text",
			Text:     b.text(),
			Boxes: []engine.Box{{
				PageNo: pageNo,
				BBox:   b.bbox(),
				Origin: geometry.BottomLeft,
			}},
		}

		if classify {
			switch {
			case isHeading(b, bodySize):
				if pageNo == 1 && i == 0 && b.fontSize >= bodySize*titleRatio {
					el.Label = "title"
				} else {
					el.Label = "section_header"
				}
				parentID = nativeID
			case isListItem(b):
				el.Label = "list_item"
				fallthrough
			default:
				if parentID != "" {
					el.NativeParentID = parentID
					el.Level = 2
				}
			}
		}

		elements = append(elements, el)
	}
	return elements
}

// bodyFontSize estimates the running-text size as the size carrying the most
// characters.
func bodyFontSize(blocks []*block) float64 {
	weight := make(map[float64]int)
	for _, b := range blocks {
		weight[b.fontSize] += len(b.text())
	}
	best, bestWeight := 12.0, 0
	for size, w := range weight {
		if w > bestWeight {
			best, bestWeight = size, w
		}
	}
	return best
}

func isHeading(b *block, bodySize float64) bool {
	if len(b.lines) > 2 {
		return false
	}
	text := b.text()
	if len(text) > 120 || strings.TrimSpace(text) == "" {
		return false
	}
	return b.fontSize >= bodySize*headingRatio
}

func isListItem(b *block) bool {
	text := strings.TrimSpace(b.text())
	if text == "" {
		return false
	}
	for _, prefix := range []string{"- ", "* ", "• ", "– "} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	// Numbered items: leading digits followed by a dot or parenthesis.
	i := 0
	for i < len(text) && unicode.IsDigit(rune(text[i])) {
		i++
	}
	return i > 0 && i < len(text) && (text[i] == '.' || text[i] == ')')
}
