// Package pdf wraps the low-level PDF geometry queries the pipeline needs:
// page counting, page dimensions, and page-range normalization.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// Dim is a page size in PDF points.
type Dim struct {
	Width  float64
	Height float64
}

// PageCount returns the number of pages in a PDF document.
func PageCount(data []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count PDF pages: %w", err)
	}
	return count, nil
}

// PageDimensions returns the media box size of every page, indexed by
// 1-based page number.
func PageDimensions(data []byte) (map[int]Dim, error) {
	dims, err := api.PageDims(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF page dimensions: %w", err)
	}
	result := make(map[int]Dim, len(dims))
	for i, d := range dims {
		result[i+1] = Dim{Width: d.Width, Height: d.Height}
	}
	return result, nil
}

// NormalizeRange resolves a requested first/last page pair against the
// document's page count. Zero values mean "unset": first defaults to 1, last
// to the final page. The returned bounds are inclusive.
func NormalizeRange(first, last, totalPages int) (int, int, error) {
	if first == 0 {
		first = 1
	}
	if last == 0 {
		last = totalPages
	}
	if first < 1 {
		return 0, 0, fmt.Errorf("first page %d out of range (must be >= 1)", first)
	}
	if last < first {
		return 0, 0, fmt.Errorf("last page %d before first page %d", last, first)
	}
	if first > totalPages {
		return 0, 0, fmt.Errorf("first page %d beyond document end (%d pages)", first, totalPages)
	}
	if last > totalPages {
		last = totalPages
	}
	return first, last, nil
}
