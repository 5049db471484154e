package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"partscout/internal/recommend"
	"partscout/internal/retrieval"
	"partscout/internal/types"
)

var (
	searchTopK  int
	searchNoLLM bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog and get a recommendation",
	Long: `Embeds the query, retrieves the nearest indexed listings, and asks the
generative model for a single best pick. When the model is unavailable the
retrieval list is shown alone; an empty catalog is reported as "no results",
not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top", "k", 0, "number of listings to retrieve (default from config)")
	searchCmd.Flags().BoolVar(&searchNoLLM, "no-llm", false, "skip the generative pick, show retrieval only")
}

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	engine, err := buildEngine()
	if err != nil {
		return fmt.Errorf("embedding engine: %w", err)
	}

	catalog, err := openCatalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer catalog.Close()

	topK := searchTopK
	if topK <= 0 {
		topK = cfg.Retrieval.TopK
	}

	retriever := retrieval.New(engine, catalog)
	if err := retriever.HealthCheck(ctx); err != nil {
		return fmt.Errorf("system unavailable: %w", err)
	}

	matches, err := retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("No results. Run `partscout ingest` first to populate the catalog.")
		return nil
	}

	if searchNoLLM || cfg.LLM.APIKey == "" {
		if cfg.LLM.APIKey == "" && !searchNoLLM {
			fmt.Println(dimStyle.Render("(no API key configured, showing retrieval only)"))
		}
		printMatches(matches)
		return nil
	}

	llm, err := recommend.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}

	rec, err := recommend.New(llm, cfg.LLMTimeout()).Recommend(ctx, query, matches)
	if err != nil {
		return err
	}

	if rec.Unavailable {
		fmt.Println(dimStyle.Render("Recommendation unavailable; showing retrieved listings."))
		printMatches(matches)
		return nil
	}

	printRecommendation(rec)
	return nil
}

func printRecommendation(rec types.Recommendation) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(rec.Best.Name))
	b.WriteString("\n")
	writeField(&b, "Price", rec.Best.Price)
	writeField(&b, "Source", rec.Best.Source)
	writeField(&b, "URL", rec.Best.URL)
	writeField(&b, "Rating", rec.Best.Rating)
	writeField(&b, "Seller", rec.Best.Seller)
	writeField(&b, "Seller Rating", rec.Best.SellerRating)
	writeField(&b, "Reason", rec.Reason)
	fmt.Println(cardStyle.Render(b.String()))

	if len(rec.Alternatives) > 0 {
		fmt.Println("Alternatives:")
		for i, alt := range rec.Alternatives {
			price := alt.Price
			if price == "" {
				price = types.NA
			}
			fmt.Printf("  %d. %s — %s (%s)\n     %s\n", i+2, alt.Name, price, alt.Source, dimStyle.Render(alt.URL))
		}
	}
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(labelStyle.Render(label+": ") + value + "\n")
}

func printMatches(matches types.RetrievalResult) {
	for i, m := range matches {
		p := types.ProductFromMetadata(m.Entry.Metadata)
		price := p.Price
		if price == "" {
			price = types.NA
		}
		fmt.Printf("%d. %s — %s (%s, similarity %.3f)\n   %s\n",
			i+1, p.Name, price, p.Source, m.Similarity(), dimStyle.Render(p.URL))
	}
}
