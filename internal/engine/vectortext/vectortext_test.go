package vectortext

import (
	"testing"

	dpdf "github.com/dslipak/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/docslice/internal/geometry"
)

func run(s string, x, y, w, size float64) dpdf.Text {
	return dpdf.Text{S: s, X: x, Y: y, W: w, FontSize: size}
}

func TestGroupLinesOrdersTopDown(t *testing.T) {
	// PDF y grows upwards; the run at y=700 is above the run at y=650.
	texts := []dpdf.Text{
		run("second", 72, 650, 40, 11),
		run("first", 72, 700, 30, 11),
	}
	lines := groupLines(texts)
	require.Len(t, lines, 2)
	assert.Equal(t, "first", lines[0].text())
	assert.Equal(t, "second", lines[1].text())
}

func TestGroupLinesMergesSameBaseline(t *testing.T) {
	texts := []dpdf.Text{
		run("world", 120, 700.3, 40, 11),
		run("hello", 72, 700, 40, 11),
	}
	lines := groupLines(texts)
	require.Len(t, lines, 1)
	assert.Equal(t, "hello world", lines[0].text())
}

func TestGroupLinesSkipsWhitespaceRuns(t *testing.T) {
	texts := []dpdf.Text{
		run("  ", 72, 700, 10, 11),
		run("text", 90, 700, 30, 11),
	}
	lines := groupLines(texts)
	require.Len(t, lines, 1)
	assert.Equal(t, "text", lines[0].text())
}

func TestLineBBox(t *testing.T) {
	texts := []dpdf.Text{
		run("hello", 72, 700, 40, 11),
		run("world", 120, 700, 40, 11),
	}
	lines := groupLines(texts)
	require.Len(t, lines, 1)
	box := lines[0].bbox()
	assert.InDelta(t, 72, box.Left, 1e-9)
	assert.InDelta(t, 160, box.Right, 1e-9)
	assert.InDelta(t, 700, box.Bottom, 1e-9)
	assert.InDelta(t, 711, box.Top, 1e-9)
	assert.NoError(t, geometry.Validate(box, geometry.BottomLeft))
}

func TestGroupBlocksSplitsOnGap(t *testing.T) {
	// Three lines: the first two 13pt apart (same paragraph), then a 40pt
	// gap before the third.
	texts := []dpdf.Text{
		run("para1 line1", 72, 700, 100, 11),
		run("para1 line2", 72, 687, 100, 11),
		run("para2", 72, 647, 100, 11),
	}
	blocks := groupBlocks(groupLines(texts))
	require.Len(t, blocks, 2)
	assert.Equal(t, "para1 line1 para1 line2", blocks[0].text())
	assert.Equal(t, "para2", blocks[1].text())
}

func TestGroupBlocksSplitsOnFontChange(t *testing.T) {
	texts := []dpdf.Text{
		run("Heading", 72, 700, 80, 18),
		run("body text", 72, 684, 100, 11),
	}
	blocks := groupBlocks(groupLines(texts))
	require.Len(t, blocks, 2)
}

func TestLabelBlocksClassifiesHeadings(t *testing.T) {
	texts := []dpdf.Text{
		run("Introduction", 72, 700, 90, 14),
		run("Body paragraph with plenty of regular sized running text here.", 72, 680, 400, 11),
		run("More body text under the same heading for weight.", 72, 666, 350, 11),
	}
	blocks := groupBlocks(groupLines(texts))
	elements := labelBlocks(blocks, 1, true)
	require.Len(t, elements, 2)

	assert.Equal(t, "section_header", elements[0].Label)
	assert.Equal(t, 1, elements[0].Level)
	assert.Empty(t, elements[0].NativeParentID)

	assert.Equal(t, "text", elements[1].Label)
	assert.Equal(t, 2, elements[1].Level)
	assert.Equal(t, elements[0].NativeID, elements[1].NativeParentID)
}

func TestLabelBlocksSpeedModeIsFlat(t *testing.T) {
	texts := []dpdf.Text{
		run("Big Heading", 72, 700, 90, 20),
		run("body", 72, 680, 40, 11),
	}
	blocks := groupBlocks(groupLines(texts))
	elements := labelBlocks(blocks, 1, false)
	require.Len(t, elements, 2)
	for _, el := range elements {
		assert.Equal(t, "text", el.Label)
		assert.Equal(t, 1, el.Level)
		assert.Empty(t, el.NativeParentID)
	}
}

func TestLabelBlocksEmitsBottomLeftBoxes(t *testing.T) {
	texts := []dpdf.Text{run("body", 72, 680, 40, 11)}
	elements := labelBlocks(groupBlocks(groupLines(texts)), 3, true)
	require.Len(t, elements, 1)
	require.Len(t, elements[0].Boxes, 1)
	assert.Equal(t, 3, elements[0].Boxes[0].PageNo)
	assert.Equal(t, geometry.BottomLeft, elements[0].Boxes[0].Origin)
}

func TestIsListItem(t *testing.T) {
	item := func(s string) *block {
		lines := groupLines([]dpdf.Text{run(s, 72, 700, 100, 11)})
		return groupBlocks(lines)[0]
	}
	assert.True(t, isListItem(item("- dash item")))
	assert.True(t, isListItem(item("• bullet item")))
	assert.True(t, isListItem(item("1. numbered item")))
	assert.True(t, isListItem(item("12) numbered item")))
	assert.False(t, isListItem(item("plain sentence")))
	assert.False(t, isListItem(item("2024 was a year")))
}

func TestBodyFontSize(t *testing.T) {
	texts := []dpdf.Text{
		run("Heading", 72, 700, 80, 18),
		run("A long body paragraph that carries far more characters than the heading does.", 72, 680, 400, 11),
	}
	blocks := groupBlocks(groupLines(texts))
	assert.InDelta(t, 11, bodyFontSize(blocks), 1e-9)
}
