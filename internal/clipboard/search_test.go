package clipboard

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHighlightKeepsRuneBoundaries(t *testing.T) {
	// multibyte runes placed so both window cut points land mid-rune
	text := strings.Repeat("a", 10) + "€" + strings.Repeat("b", 58) +
		"needle" + strings.Repeat("c", 59) + "€" + "d"

	snippet := highlight(text, strings.ToLower(text), "needle")
	if !utf8.ValidString(snippet) {
		t.Fatalf("highlight emitted invalid UTF-8: %q", snippet)
	}
	if !strings.Contains(snippet, "needle") {
		t.Fatalf("highlight lost the match: %q", snippet)
	}
	if !strings.HasPrefix(snippet, "...") || !strings.HasSuffix(snippet, "...") {
		t.Fatalf("expected ellipses on both clamped sides: %q", snippet)
	}
}

func TestHighlightShortTextUnclamped(t *testing.T) {
	text := "tiny osmosis note"
	snippet := highlight(text, text, "osmosis")
	if snippet != text {
		t.Fatalf("short text should be returned whole, got %q", snippet)
	}
}
