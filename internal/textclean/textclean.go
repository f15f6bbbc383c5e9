// Package textclean turns upstream and user supplied text into plain text.
package textclean

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element; bluemonday policies are safe for concurrent use
var strict = bluemonday.StrictPolicy()

// StripMarkup removes tags, decodes entities and collapses whitespace
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}
	return strings.Join(strings.Fields(html.UnescapeString(strict.Sanitize(s))), " ")
}

// Excerpt cuts s to at most max runes, appending "..." when it was cut
func Excerpt(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max]), " ") + "..."
}

// LimitWords keeps the first n words of s, appending "..." when words were dropped
func LimitWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + "..."
}
