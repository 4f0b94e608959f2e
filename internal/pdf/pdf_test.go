package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRange(t *testing.T) {
	tests := []struct {
		name        string
		first, last int
		total       int
		wantFirst   int
		wantLast    int
		wantErr     bool
	}{
		{"both unset", 0, 0, 10, 1, 10, false},
		{"explicit subrange", 3, 5, 10, 3, 5, false},
		{"last unset", 4, 0, 10, 4, 10, false},
		{"single page", 7, 7, 10, 7, 7, false},
		{"last clamped to total", 3, 99, 10, 3, 10, false},
		{"first below one", -1, 5, 10, 0, 0, true},
		{"last before first", 5, 3, 10, 0, 0, true},
		{"first beyond end", 11, 0, 10, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last, err := NormalizeRange(tt.first, tt.last, tt.total)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "Hello world", "Hello world"},
		{"numeric glyph tag", "before glyph<123> after", "before after"},
		{"font glyph tag", "x glyph<c=3,font=/AAAA+Arial-Bold> y", "x y"},
		{"case insensitive", "a GLYPH<42> b", "a b"},
		{"collapses whitespace", "a  \t b   c", "a b c"},
		{"trims", "  padded  ", "padded"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestPageCountRejectsGarbage(t *testing.T) {
	_, err := PageCount([]byte("not a pdf"))
	assert.Error(t, err)
}
