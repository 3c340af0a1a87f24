package verify

import "strings"

// Directional vocabularies for lexical conflict detection. Substring
// matching keeps inflected forms ("reduces", "increased") in scope.
var (
	increaseKeywords = []string{
		"increase", "rise", "raise", "boost", "accelerate",
		"worsen", "expand", "grow", "surge", "higher",
	}
	decreaseKeywords = []string{
		"reduce", "decrease", "lower", "decline", "fall",
		"slow", "limit", "control", "curb", "drop",
	}
)

// polarity classifies the direction a claim asserts: +1 increase, -1
// decrease, 0 neutral or mixed. Each keyword counts at most once.
func polarity(text string) int {
	lower := strings.ToLower(text)
	var up, down int
	for _, kw := range increaseKeywords {
		if strings.Contains(lower, kw) {
			up++
		}
	}
	for _, kw := range decreaseKeywords {
		if strings.Contains(lower, kw) {
			down++
		}
	}
	switch {
	case up > down:
		return 1
	case down > up:
		return -1
	default:
		return 0
	}
}
