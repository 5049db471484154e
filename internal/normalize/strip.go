package normalize

import (
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup removes HTML tags and markdown bold/italic markers from a
// value, collapsing the result to trimmed plain text. Model replies and
// scraped fragments both pass through here before display or storage.
func StripMarkup(s string) string {
	if s == "" {
		return s
	}

	if strings.ContainsAny(s, "<>") {
		var b strings.Builder
		tok := html.NewTokenizer(strings.NewReader(s))
		for {
			tt := tok.Next()
			if tt == html.ErrorToken {
				break
			}
			if tt == html.TextToken {
				b.Write(tok.Text())
			}
		}
		s = b.String()
	}

	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	return strings.TrimSpace(s)
}

// CleanURL strips markdown link syntax and stray punctuation that models
// sometimes wrap around a URL: "[text](url)" becomes "url", trailing
// ")", "]", "." and "," are dropped.
func CleanURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}

	// Markdown link: take the parenthesized target.
	if open := strings.Index(s, "]("); open >= 0 {
		s = s[open+2:]
		if close := strings.Index(s, ")"); close >= 0 {
			s = s[:close]
		}
	}

	s = strings.Trim(s, "[]<>")
	s = strings.TrimRight(s, ").,")
	return strings.TrimSpace(s)
}

// CollapseSpaces normalizes runs of whitespace (including newlines) inside
// scraped text to single spaces.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
