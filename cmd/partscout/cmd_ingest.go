package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"partscout/internal/fetch"
	"partscout/internal/index"
	"partscout/internal/normalize"
	"partscout/internal/pipeline"
	"partscout/internal/scrape"
)

var (
	ingestLimit   int
	ingestArchive bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [query]",
	Short: "Scrape the configured marketplaces and index the listings",
	Long: `Runs one ingestion pass: each enabled source is searched for the query,
listings are normalized into the canonical schema, embedded, and upserted
into the local catalog. Re-running the same query refreshes existing rows
instead of duplicating them.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestLimit, "limit", "n", 10, "max listings per source")
	ingestCmd.Flags().BoolVar(&ingestArchive, "archive", false, "write a JSON dump of the run")
}

func runIngest(cmd *cobra.Command, args []string) error {
	query := args[0]
	for _, a := range args[1:] {
		query += " " + a
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	engine, err := buildEngine()
	if err != nil {
		return fmt.Errorf("embedding engine: %w", err)
	}

	catalog, err := openCatalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer catalog.Close()

	extractors, cleanup, err := buildExtractors()
	if err != nil {
		return err
	}
	defer cleanup()
	if len(extractors) == 0 {
		return fmt.Errorf("no sources enabled in config")
	}

	norm := normalize.New(cfg.Sources.Amazon.BaseURL, cfg.Sources.IndiaMart.BaseURL)
	pl := pipeline.New(extractors, norm, index.New(engine, catalog))
	if ingestArchive {
		pl.ArchiveDir = filepath.Join(cfg.DataDir, "runs")
	}

	logger.Info("starting ingest",
		zap.String("query", query),
		zap.Int("limit", ingestLimit),
		zap.Int("sources", len(extractors)))

	summary, err := pl.Run(ctx, query, ingestLimit)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s — %q\n", summary.RunID, summary.Query)
	for _, src := range summary.Sources {
		if src.Err != "" {
			fmt.Printf("  %-15s FAILED: %s\n", src.Source, src.Err)
			continue
		}
		fmt.Printf("  %-15s found=%-3d extracted=%-3d upserted=%d\n",
			src.Source, src.Found, src.Extracted, src.Upserted)
	}
	fmt.Printf("Total upserted: %d\n", summary.TotalUpserted())
	return nil
}

// buildExtractors assembles the enabled sources. The DOM sources share one
// browser behind a politeness limiter; eBay is API-only and needs neither.
func buildExtractors() ([]scrape.Extractor, func(), error) {
	var extractors []scrape.Extractor
	cleanup := func() {}

	if cfg.Sources.Amazon.Enabled || cfg.Sources.IndiaMart.Enabled {
		rod := fetch.NewRodFetcher(fetch.Config{
			Headless:          cfg.Fetch.Headless,
			ViewportWidth:     cfg.Fetch.ViewportWidth,
			ViewportHeight:    cfg.Fetch.ViewportHeight,
			UserAgent:         cfg.Fetch.UserAgent,
			NavigationTimeout: cfg.Fetch.NavigationTimeoutDuration(),
			SettleDelay:       cfg.Fetch.SettleDelayDuration(),
		})
		cleanup = func() { _ = rod.Close() }
		fetcher := fetch.NewPoliteFetcher(rod, cfg.Fetch.RequestsPerSecond)

		if cfg.Sources.Amazon.Enabled {
			extractors = append(extractors, scrape.NewAmazonExtractor(fetcher, cfg.Sources.Amazon.BaseURL))
		}
		if cfg.Sources.IndiaMart.Enabled {
			extractors = append(extractors, scrape.NewIndiaMartExtractor(
				fetcher, cfg.Sources.IndiaMart.BaseURL, cfg.Sources.IndiaMart.SearchURL))
		}
	}

	if cfg.Sources.Ebay.Enabled {
		ebay, err := scrape.NewEbayExtractor(scrape.EbayConfig{
			ClientID:     cfg.Sources.Ebay.ClientID,
			ClientSecret: cfg.Sources.Ebay.ClientSecret,
			Sandbox:      cfg.Sources.Ebay.Sandbox,
			Timeout:      cfg.Sources.Ebay.TimeoutDuration(),
		})
		if err != nil {
			// Missing credentials disable the source rather than the run.
			logger.Warn("ebay source disabled", zap.Error(err))
		} else {
			extractors = append(extractors, ebay)
		}
	}

	return extractors, cleanup, nil
}
