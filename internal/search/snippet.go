package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// snippetWidth is the character budget for a message snippet, excluding the
// highlight markers.
const snippetWidth = 120

// highlightMarker wraps the matched term for client-side emphasis.
const highlightMarker = "**"

// findFold locates the first case-insensitive occurrence of term in text and
// returns its byte range in the original string, or (-1, 0). Lowercasing can
// change a rune's byte length, so the index found in the lowered text is
// mapped back to original offsets rune by rune.
func findFold(text, term string) (int, int) {
	if term == "" {
		return -1, 0
	}
	var low strings.Builder
	low.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)
	for i, r := range text {
		lr := unicode.ToLower(r)
		for j := 0; j < utf8.RuneLen(lr); j++ {
			offsets = append(offsets, i)
		}
		low.WriteRune(lr)
	}
	offsets = append(offsets, len(text))

	lowTerm := strings.ToLower(term)
	idx := strings.Index(low.String(), lowTerm)
	if idx < 0 {
		return -1, 0
	}
	return offsets[idx], offsets[idx+len(lowTerm)]
}

// snapToRune moves a byte offset down to the nearest rune start so slicing
// never splits a multi-byte rune.
func snapToRune(text string, i int) int {
	for i > 0 && i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

// makeSnippet cuts a bounded window out of text centered on the first
// case-insensitive occurrence of term and wraps the matched region in
// highlight markers. Ellipses mark truncated ends. When term does not occur,
// the head of the text is returned instead.
func makeSnippet(text, term string, width int) string {
	if width <= 0 {
		width = snippetWidth
	}
	if text == "" {
		return ""
	}

	matchStart, matchEnd := findFold(text, term)
	if matchStart < 0 {
		if len(text) <= width {
			return text
		}
		return text[:snapToRune(text, width)] + "..."
	}

	pad := (width - (matchEnd - matchStart)) / 2
	if pad < 0 {
		pad = 0
	}
	start := matchStart - pad
	if start < 0 {
		start = 0
	}
	start = snapToRune(text, start)
	end := matchEnd + pad
	if end > len(text) {
		end = len(text)
	}
	end = snapToRune(text, end)

	var b strings.Builder
	if start > 0 {
		b.WriteString("...")
	}
	b.WriteString(text[start:matchStart])
	b.WriteString(highlightMarker)
	b.WriteString(text[matchStart:matchEnd])
	b.WriteString(highlightMarker)
	b.WriteString(text[matchEnd:end])
	if end < len(text) {
		b.WriteString("...")
	}
	return b.String()
}

// truncatePreview caps a last-message preview to the given byte budget
// without splitting a rune.
func truncatePreview(text string, budget int) string {
	if len(text) <= budget {
		return text
	}
	return text[:snapToRune(text, budget)] + "..."
}
