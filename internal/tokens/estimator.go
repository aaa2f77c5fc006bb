// Package tokens estimates and classifies token usage inside the nested
// message documents persisted with each conversation record.
package tokens

import "unicode/utf8"

// Estimate approximates the token count of a text fragment using the
// rule of thumb of ~4 characters per token: max(1, len/4). The empty
// string estimates to 0, not 1.
func Estimate(text string) int {
	if text == "" {
		return 0
	}
	n := utf8.RuneCountInString(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
