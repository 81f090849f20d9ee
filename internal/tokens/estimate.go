// Package tokens provides a rough token count heuristic used when a
// provider response omits usage metadata.
package tokens

// Estimate approximates the token count of text as len/4, with a floor
// of one token for any input including the empty string.
func Estimate(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
