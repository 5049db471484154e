// Package recommend turns a retrieval result into a single best-pick answer:
// a numbered context block, one stateless generative call, and a forgiving
// label parser over the free-text reply.
package recommend

import (
	"fmt"
	"strings"

	"partscout/internal/types"
)

// FormatContext renders matches as the numbered block the model sees. These
// lines are the model's only source of product facts; anything absent here
// cannot truthfully appear in the reply.
func FormatContext(matches types.RetrievalResult) string {
	var b strings.Builder
	for i, m := range matches {
		p := types.ProductFromMetadata(m.Entry.Metadata)
		price := p.Price
		if price == "" {
			price = types.NA
		}
		fmt.Fprintf(&b, "%d. Name: %s, Price: %s, Source: %s, URL: %s\n",
			i+1, p.Name, price, p.Source, p.URL)
	}
	return b.String()
}
