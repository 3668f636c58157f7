// Package chunker splits a knowledge-base document into retrievable chunks.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"

	"github.com/MereWhiplash/ikc-search/internal/types"
)

// MinChunkLength is the number of runes a trimmed piece must exceed to be kept
const MinChunkLength = 30

// DefaultIDPrefix is used when Chunks is called with an empty prefix
const DefaultIDPrefix = "ikc"

// separators matches runs of newlines, bullets, hyphens and en dashes
var separators = regexp.MustCompile(`[\n•\-–]+`)

// Split breaks text on separator runs and drops short pieces.
// Order of the surviving pieces follows the source document.
func Split(text string) []string {
	parts := separators.Split(text, -1)
	return lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, utf8.RuneCountInString(p) > MinChunkLength
	})
}

// Chunks splits text and assigns sequential IDs <prefix>_<i> and the source tag
func Chunks(text, idPrefix, source string) []types.Chunk {
	if idPrefix == "" {
		idPrefix = DefaultIDPrefix
	}
	if source == "" {
		source = types.DefaultSource
	}

	return lo.Map(Split(text), func(content string, i int) types.Chunk {
		return types.Chunk{
			ID:      fmt.Sprintf("%s_%d", idPrefix, i),
			Content: content,
			Source:  source,
		}
	})
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
