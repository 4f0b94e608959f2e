package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docslice/internal/document"
	"github.com/MeKo-Tech/docslice/internal/engine"
	"github.com/MeKo-Tech/docslice/internal/geometry"
)

func sliceOnPage(seq int, pageNos ...int) document.Slice {
	s := document.Slice{Ref: "#/slices/0", Sequence: seq, Label: document.LabelParagraph}
	for _, p := range pageNos {
		s.Positions = append(s.Positions, document.Position{
			PageNo: p, Top: 10, Right: 100, Bottom: 20, Left: 10,
			CoordOrigin: geometry.TopLeft,
		})
	}
	return s
}

func infos(pageNos ...int) []engine.PageInfo {
	out := make([]engine.PageInfo, 0, len(pageNos))
	for _, p := range pageNos {
		out = append(out, engine.PageInfo{PageNo: p, Width: 612, Height: 792})
	}
	return out
}

func TestAssemblePagesBoundsRange(t *testing.T) {
	slices := []document.Slice{
		sliceOnPage(0, 1),
		sliceOnPage(1, 3),
		sliceOnPage(2, 4),
		sliceOnPage(3, 5),
		sliceOnPage(4, 9),
	}
	pages := assemblePages(slices, infos(1, 2, 3, 4, 5, 6, 7, 8, 9, 10), 3, 5)

	require.Len(t, pages, 3)
	assert.Equal(t, 3, pages[0].PageNo)
	assert.Equal(t, 4, pages[1].PageNo)
	assert.Equal(t, 5, pages[2].PageNo)
	for _, p := range pages {
		require.Len(t, p.Slices, 1)
		for _, s := range p.Slices {
			assert.Equal(t, p.PageNo, s.Positions[0].PageNo)
		}
	}
}

func TestAssemblePagesOrdersAscending(t *testing.T) {
	pages := assemblePages(nil, infos(5, 3, 4), 1, 10)
	require.Len(t, pages, 3)
	assert.Equal(t, 3, pages[0].PageNo)
	assert.Equal(t, 4, pages[1].PageNo)
	assert.Equal(t, 5, pages[2].PageNo)
}

func TestAssemblePagesEmptyPageStillPresent(t *testing.T) {
	pages := assemblePages([]document.Slice{sliceOnPage(0, 1)}, infos(1, 2), 1, 2)
	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Slices, 1)
	assert.Empty(t, pages[1].Slices)
	assert.NotNil(t, pages[1].Slices, "slices serializes as [] not null")
}

func TestAssemblePagesMultiPageSlice(t *testing.T) {
	spanning := sliceOnPage(1, 2, 3)
	slices := []document.Slice{sliceOnPage(0, 2), spanning}
	pages := assemblePages(slices, infos(2, 3), 2, 3)

	require.Len(t, pages, 2)
	assert.Len(t, pages[0].Slices, 2)
	require.Len(t, pages[1].Slices, 1)
	// The spanning slice keeps its original sequence on every page.
	assert.Equal(t, 1, pages[1].Slices[0].Sequence)
}

func TestAssemblePagesAttachesGeometry(t *testing.T) {
	pages := assemblePages(nil, []engine.PageInfo{{PageNo: 1, Width: 595.2, Height: 841.8}}, 1, 1)
	require.Len(t, pages, 1)
	assert.InDelta(t, 595.2, pages[0].Width, 1e-9)
	assert.InDelta(t, 841.8, pages[0].Height, 1e-9)
}
