package retrieval

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitText_ShortTextPassesThrough(t *testing.T) {
	got := splitText("corto", 512, 50)
	if len(got) != 1 || got[0] != "corto" {
		t.Errorf("splitText = %v, want passthrough", got)
	}
}

func TestSplitText_SplitsOnParagraphs(t *testing.T) {
	text := strings.Repeat("a", 40) + "\n\n" + strings.Repeat("b", 40) + "\n\n" + strings.Repeat("c", 40)

	chunks := splitText(text, 50, 0)

	if len(chunks) < 2 {
		t.Fatalf("chunks = %d, want split across paragraphs", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 90 {
			t.Errorf("chunk %d has %d runes, want near target size", i, n)
		}
	}
}

func TestSplitText_OverlapCarriesTail(t *testing.T) {
	text := strings.Repeat("x", 60) + " " + strings.Repeat("y", 60)

	chunks := splitText(text, 64, 10)

	if len(chunks) != 2 {
		t.Fatalf("chunks = %d, want 2", len(chunks))
	}
	tail := chunks[0][len(chunks[0])-10:]
	if !strings.HasPrefix(chunks[1], tail) {
		t.Errorf("second chunk does not start with overlap tail %q:\n%q", tail, chunks[1])
	}
}

func TestSplitText_FallsBackToRunes(t *testing.T) {
	// No separators at all: must split by rune count.
	text := strings.Repeat("ñ", 100)

	chunks := splitText(text, 30, 0)

	if len(chunks) < 3 {
		t.Fatalf("chunks = %d, want rune-level split", len(chunks))
	}
	if utf8.RuneCountInString(chunks[0]) != 30 {
		t.Errorf("first chunk = %d runes, want 30", utf8.RuneCountInString(chunks[0]))
	}
}

func TestOverlapTail(t *testing.T) {
	if got := overlapTail("abcdef", 3); got != "def" {
		t.Errorf("overlapTail = %q, want def", got)
	}
	if got := overlapTail("ab", 5); got != "ab" {
		t.Errorf("overlapTail = %q, want whole string when shorter", got)
	}
}
