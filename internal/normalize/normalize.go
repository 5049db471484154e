// Package normalize converts loosely-typed raw marketplace records into the
// canonical product schema. Mapping is pure: per-field failures default to
// the sentinel, and only a missing identity or an uninformative name discards
// a record outright.
package normalize

import (
	"strings"
	"unicode/utf8"

	"partscout/internal/logging"
	"partscout/internal/types"
)

// minNameLen is the informative floor in characters: names at or below this
// length are navigation chrome or truncated fragments, not listings.
const minNameLen = 10

// Normalizer maps raw records to canonical products. Base URLs are needed to
// resolve relative hrefs from the DOM sources; API sources return absolute
// URLs already.
type Normalizer struct {
	bases map[string]string
}

// New creates a Normalizer with per-source base URLs for href resolution.
func New(amazonBase, indiamartBase string) *Normalizer {
	return &Normalizer{
		bases: map[string]string{
			types.SourceAmazon:    amazonBase,
			types.SourceIndiaMart: indiamartBase,
		},
	}
}

// Normalize maps one raw record to a canonical product. The second return is
// false when the record must be discarded: unknown source, missing identity,
// name at or below the informative floor, or unresolvable URL.
func (n *Normalizer) Normalize(raw types.RawRecord) (types.CanonicalProduct, bool) {
	var p types.CanonicalProduct
	var ok bool

	switch raw.Source {
	case types.SourceAmazon:
		p, ok = n.normalizeAmazon(raw)
	case types.SourceEbay:
		p, ok = n.normalizeEbay(raw)
	case types.SourceIndiaMart:
		p, ok = n.normalizeIndiaMart(raw)
	default:
		logging.Normalize("Discarding record with unknown source %q", raw.Source)
		return types.CanonicalProduct{}, false
	}

	if !ok {
		return types.CanonicalProduct{}, false
	}

	p.Name = CollapseSpaces(StripMarkup(p.Name))
	if utf8.RuneCountInString(p.Name) <= minNameLen {
		logging.NormalizeDebug("Discarding %s record: name too short (%q)", raw.Source, p.Name)
		return types.CanonicalProduct{}, false
	}
	if p.URL == "" {
		logging.NormalizeDebug("Discarding %s record %q: no resolvable URL", raw.Source, p.Name)
		return types.CanonicalProduct{}, false
	}
	return p, true
}

// NormalizeAll maps a batch, dropping discards. Per-item isolation: a bad
// record never affects its neighbors.
func (n *Normalizer) NormalizeAll(raws []types.RawRecord) []types.CanonicalProduct {
	out := make([]types.CanonicalProduct, 0, len(raws))
	for _, raw := range raws {
		if p, ok := n.Normalize(raw); ok {
			out = append(out, p)
		}
	}
	if dropped := len(raws) - len(out); dropped > 0 {
		logging.Normalize("Normalized %d of %d records (%d discarded)", len(out), len(raws), dropped)
	}
	return out
}

func (n *Normalizer) normalizeAmazon(raw types.RawRecord) (types.CanonicalProduct, bool) {
	asin := raw.Get("asin")
	if len(asin) < 4 {
		return types.CanonicalProduct{}, false
	}
	return types.CanonicalProduct{
		SourceID:     asin,
		Name:         raw.Get("title"),
		Price:        raw.GetOr("price", types.NA),
		URL:          ResolveURL(n.bases[types.SourceAmazon], raw.Get("url")),
		Source:       types.SourceAmazon,
		Rating:       raw.Get("rating"),
		ReviewCount:  raw.Get("review_count"),
		Availability: raw.Get("availability"),
		ImageURL:     raw.Get("image"),
	}, true
}

func (n *Normalizer) normalizeEbay(raw types.RawRecord) (types.CanonicalProduct, bool) {
	id := raw.Get("item_id")
	if id == "" {
		return types.CanonicalProduct{}, false
	}
	return types.CanonicalProduct{
		SourceID:     id,
		Name:         raw.Get("title"),
		Price:        raw.GetOr("price", types.NA),
		URL:          raw.Get("url"), // Browse API returns absolute itemWebUrl
		Source:       types.SourceEbay,
		Seller:       raw.Get("seller"),
		SellerRating: raw.Get("seller_rating"),
		ShippingCost: raw.GetOr("shipping", "Free"),
		Condition:    raw.Get("condition"),
		Location:     raw.Get("location"),
		ImageURL:     raw.Get("image"),
	}, true
}

func (n *Normalizer) normalizeIndiaMart(raw types.RawRecord) (types.CanonicalProduct, bool) {
	url := ResolveURL(n.bases[types.SourceIndiaMart], raw.Get("url"))
	if url == "" {
		return types.CanonicalProduct{}, false
	}
	return types.CanonicalProduct{
		// Listing pages expose no stable item id; the product URL is the
		// most durable identity available.
		SourceID: urlIdentity(url),
		Name:     raw.Get("name"),
		Price:    raw.GetOr("price", "Ask Price"),
		URL:      url,
		Source:   types.SourceIndiaMart,
		Seller:   raw.Get("company"),
		Location: raw.Get("location"),
	}, true
}

// urlIdentity derives a stable id from a product URL: the last meaningful
// path segment, query and fragment stripped.
func urlIdentity(url string) string {
	s := url
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	if s == "" {
		return url
	}
	return s
}
