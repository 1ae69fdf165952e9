package transform

import (
	"strings"
	"unicode"
)

// CountWords counts CJK ideographs individually plus runs of latin letters
// or digits as words. Markdown punctuation is ignored.
func CountWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			count++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'':
			if !inWord && r != '\'' {
				count++
				inWord = true
			}
		default:
			inWord = false
		}
	}
	return count
}

// truncateRunes cuts s to at most n runes, appending suffix when cut.
func truncateRunes(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + suffix
}
