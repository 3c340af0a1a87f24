package web

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements are containers whose text content is never page prose.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"svg":      true,
}

// ExtractText reduces an HTML document to its visible text. Text nodes are
// whitespace-normalized and joined with single spaces; the first <title> is
// returned separately and also contributes to the text, matching what a
// reader of the page sees. Malformed HTML degrades gracefully: the tokenizer
// yields whatever text it can.
func ExtractText(body []byte) (title, text string) {
	z := html.NewTokenizer(bytes.NewReader(body))

	var (
		parts     []string
		titleSeen bool
		inTitle   bool
		skipDepth int
	)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return title, strings.Join(parts, " ")

		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedElements[tag] {
				skipDepth++
			} else if tag == "title" && !titleSeen {
				inTitle = true
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedElements[tag] && skipDepth > 0 {
				skipDepth--
			} else if tag == "title" {
				inTitle = false
				titleSeen = true
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			trimmed := strings.Join(strings.Fields(string(z.Text())), " ")
			if trimmed == "" {
				continue
			}
			if inTitle && title == "" {
				title = trimmed
			}
			parts = append(parts, trimmed)
		}
	}
}
