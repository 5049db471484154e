package recommend

import (
	"regexp"

	"partscout/internal/normalize"
	"partscout/internal/types"
)

// defaultName is the sentinel used when the model names no product at all.
const defaultName = "Best Product"

// Each label is matched independently, so a reply missing one line still
// yields the others. (?m) anchors per line; the anchor also keeps "Rating"
// and "Seller" from matching inside a "Seller Rating" line.
var (
	reName         = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Product Name(?:\*\*)?\s*:\s*(.+)$`)
	rePrice        = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Price(?:\*\*)?\s*:\s*(.+)$`)
	reSource       = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Source(?:\*\*)?\s*:\s*(.+)$`)
	reURL          = regexp.MustCompile(`(?m)^\s*(?:\*\*)?URL(?:\*\*)?\s*:\s*(.+)$`)
	reReason       = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Reason(?:\*\*)?\s*:\s*(.+)$`)
	reRating       = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Rating(?:\*\*)?\s*:\s*(.+)$`)
	reSeller       = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Seller(?:\*\*)?\s*:\s*(.+)$`)
	reSellerRating = regexp.MustCompile(`(?m)^\s*(?:\*\*)?Seller Rating(?:\*\*)?\s*:\s*(.+)$`)
)

func extract(re *regexp.Regexp, reply, def string) string {
	m := re.FindStringSubmatch(reply)
	if m == nil {
		return def
	}
	v := normalize.StripMarkup(m[1])
	if v == "" {
		return def
	}
	return v
}

// ParseReply extracts the labeled best pick from a model reply. Every label
// is optional: a missing name defaults to "Best Product", every other
// missing field to "N/A". The parser never fails; the worst malformed reply
// yields a fully-defaulted pick.
func ParseReply(reply string) (types.CanonicalProduct, string) {
	best := types.CanonicalProduct{
		Name:         extract(reName, reply, defaultName),
		Price:        extract(rePrice, reply, types.NA),
		Source:       extract(reSource, reply, types.NA),
		URL:          normalize.CleanURL(extract(reURL, reply, types.NA)),
		Rating:       extract(reRating, reply, types.NA),
		Seller:       extract(reSeller, reply, types.NA),
		SellerRating: extract(reSellerRating, reply, types.NA),
	}
	reason := extract(reReason, reply, types.NA)
	return best, reason
}
