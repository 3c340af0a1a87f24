package research

import (
	"strings"
	"unicode"
)

// minOverlap is how many content words a claim must share with the question
// to count as relevant.
const minOverlap = 2

// stopwords are dropped before overlap counting.
var stopwords = map[string]bool{
	"the": true, "is": true, "a": true, "an": true, "of": true,
	"to": true, "and": true, "in": true, "for": true, "on": true,
	"with": true, "by": true, "as": true, "that": true, "this": true,
}

// contentWords reduces text to its meaningful vocabulary: lowercase, strip
// everything but letters and digits, drop stopwords and words of three
// characters or fewer.
func contentWords(text string) map[string]bool {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, text)

	words := make(map[string]bool)
	for _, w := range strings.Fields(cleaned) {
		if len(w) > 3 && !stopwords[w] {
			words[w] = true
		}
	}
	return words
}

// isRelevant reports whether a claim shares enough vocabulary with the
// question to belong in the verification set.
func isRelevant(claim, question string) bool {
	claimWords := contentWords(claim)
	questionWords := contentWords(question)
	overlap := 0
	for w := range claimWords {
		if questionWords[w] {
			overlap++
			if overlap >= minOverlap {
				return true
			}
		}
	}
	return false
}
