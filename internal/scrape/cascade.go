// Package scrape implements the per-marketplace extractors. Each source ships
// an ordered cascade of strategies: preferred CSS selectors first, then
// looser ones, then structural fallbacks, so a single site redesign degrades
// extraction instead of breaking it.
package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"partscout/internal/logging"
)

// Selector is one step of a container cascade: a CSS query plus the minimum
// number of matches required to trust it. The floor keeps a lone banner or
// nav element from masquerading as the result grid.
type Selector struct {
	Query      string
	MinMatches int
}

// FirstSatisfying walks the cascade in order and returns the first selection
// whose match count meets the selector's floor (1 when unset), along with the
// index of the winning selector. ok is false when no selector satisfies.
func FirstSatisfying(root *goquery.Selection, cascade []Selector) (*goquery.Selection, int, bool) {
	for i, sel := range cascade {
		min := sel.MinMatches
		if min <= 0 {
			min = 1
		}
		found := root.Find(sel.Query)
		if found.Length() >= min {
			logging.ScrapeDebug("Cascade hit: %q matched %d (step %d of %d)",
				sel.Query, found.Length(), i+1, len(cascade))
			return found, i, true
		}
	}
	return nil, -1, false
}

// FieldText tries each query in order against an item and returns the first
// non-empty trimmed text. Fields cascade independently of each other: a site
// change that breaks the price selectors leaves the title cascade untouched.
func FieldText(item *goquery.Selection, queries ...string) string {
	for _, q := range queries {
		if txt := strings.TrimSpace(item.Find(q).First().Text()); txt != "" {
			return txt
		}
	}
	return ""
}

// FieldAttr tries each query in order and returns the first non-empty value
// of the named attribute.
func FieldAttr(item *goquery.Selection, attr string, queries ...string) string {
	for _, q := range queries {
		if v, ok := item.Find(q).First().Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// TextContaining scans an item's descendant text nodes for one containing the
// given literal and returns it trimmed. Last-resort field fallback for sites
// that render values without any stable class.
func TextContaining(item *goquery.Selection, literal string) string {
	var found string
	item.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() > 0 {
			return true
		}
		txt := strings.TrimSpace(s.Text())
		if strings.Contains(txt, literal) {
			found = txt
			return false
		}
		return true
	})
	return found
}
