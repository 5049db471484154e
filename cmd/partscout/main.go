package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"partscout/internal/config"
	"partscout/internal/embedding"
	"partscout/internal/logging"
	"partscout/internal/store"
)

var (
	// Global flags
	cfgPath string
	verbose bool
	debug   bool

	// Loaded configuration, available to all subcommands after PreRun.
	cfg *config.Config

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "partscout",
	Short: "partscout - marketplace part discovery and recommendation",
	Long: `partscout finds physical parts across marketplaces.

It scrapes or queries each configured source (Amazon, eBay, IndiaMART),
normalizes listings into one schema, and indexes them into a local vector
catalog. Searches embed your query, retrieve the nearest listings, and ask
a generative model for a single best pick with reasons.

Typical session:
  partscout ingest "trailer axle 2000kg"
  partscout search "trailer axle 2000kg"`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		opts := logging.Options{
			DebugMode:  cfg.Logging.DebugMode || debug,
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
			Categories: cfg.Logging.Categories,
		}
		if debug {
			opts.Level = "debug"
		}
		if err := logging.Initialize(cfg.DataDir, opts); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// openCatalog opens the configured catalog database.
func openCatalog() (*store.Catalog, error) {
	return store.Open(cfg.Store.DatabasePath, cfg.Store.Collection)
}

// buildEngine creates the embedding engine from configuration. Ingest and
// search both come through here so their vectors share one space.
func buildEngine() (embedding.EmbeddingEngine, error) {
	return embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       "SEMANTIC_SIMILARITY",
	})
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".partscout/config.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose console logging")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable categorized debug log files")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
