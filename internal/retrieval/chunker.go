package retrieval

import (
	"strings"
	"unicode/utf8"
)

// Chunking defaults. Oversized documents submitted for indexing are
// split into overlapping chunks before embedding so retrieval returns
// focused passages instead of whole files.
const (
	DefaultChunkSize    = 512
	DefaultChunkOverlap = 50
)

// splitText splits text into overlapping chunks using recursive
// splitting: paragraph breaks first, then lines, sentences, words, and
// finally raw runes. Text at or under the chunk size comes back whole.
func splitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}
	separators := []string{"\n\n", "\n", ". ", " ", ""}
	return recursiveSplit(text, separators, chunkSize, overlap)
}

func recursiveSplit(text string, separators []string, chunkSize, overlap int) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	// Find the best separator (first one that produces segments)
	var segments []string
	var usedSep string
	for _, sep := range separators {
		if sep == "" {
			segments = splitByRunes(text, chunkSize)
			usedSep = ""
			break
		}
		parts := strings.Split(text, sep)
		if len(parts) > 1 {
			segments = parts
			usedSep = sep
			break
		}
	}
	if len(segments) == 0 {
		return []string{text}
	}

	// Merge segments into chunks of target size
	var chunks []string
	var current strings.Builder
	for _, seg := range segments {
		candidate := current.String()
		if candidate != "" {
			candidate += usedSep
		}
		candidate += seg

		if utf8.RuneCountInString(candidate) > chunkSize && current.Len() > 0 {
			chunks = append(chunks, current.String())

			// Apply overlap: keep the tail of the flushed chunk
			tail := overlapTail(current.String(), overlap)
			current.Reset()
			if tail != "" {
				current.WriteString(tail)
				current.WriteString(usedSep)
			}
			current.WriteString(seg)
		} else {
			if current.Len() > 0 {
				current.WriteString(usedSep)
			}
			current.WriteString(seg)
		}
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// overlapTail returns the last n runes of s.
func overlapTail(s string, n int) string {
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[len(runes)-n:])
}

// splitByRunes splits text into segments of n runes each.
func splitByRunes(text string, n int) []string {
	runes := []rune(text)
	var segments []string
	for i := 0; i < len(runes); i += n {
		end := i + n
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[i:end]))
	}
	return segments
}
