package pdf

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Extraction from scanned or badly embedded fonts leaves placeholder glyph
// tags like glyph<c=3,font=/AAAA+Arial> or glyph<123> in the text stream.
var glyphPattern = regexp.MustCompile(`(?i)glyph<(?:c=\d+,font=/[A-Z0-9]+\+[A-Za-z0-9-]+|\d+)>`)

var spacePattern = regexp.MustCompile(`[ \t]+`)

// CleanText strips glyph placeholder tags, collapses runs of spaces and tabs,
// trims the result and normalizes it to NFC.
func CleanText(text string) string {
	cleaned := glyphPattern.ReplaceAllString(text, " ")
	cleaned = spacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	return norm.NFC.String(cleaned)
}
