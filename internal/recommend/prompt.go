package recommend

import "fmt"

// promptTemplate fixes the reply shape the parser expects: one pick, one
// labeled line per field. The optional labels are parsed when present and
// defaulted when not.
const promptTemplate = `You are a procurement assistant for physical parts.
Based only on the product listings below, recommend the single best product for the request: "%s"

Product listings:
%s

Reply in exactly this format:
Product Name: <name of the chosen product>
Price: <price of the chosen product>
Source: <marketplace of the chosen product>
URL: <url of the chosen product>
Reason: <one or two sentences on why this is the best choice>

If known, you may also include:
Rating: <product rating>
Seller: <seller name>
Seller Rating: <seller rating>

Do not invent products or details that are not in the listings.`

// BuildPrompt assembles the instruction for one query over a context block.
func BuildPrompt(query, contextBlock string) string {
	return fmt.Sprintf(promptTemplate, query, contextBlock)
}
