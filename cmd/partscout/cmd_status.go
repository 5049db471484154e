package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog size and embedding engine",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	catalog, err := openCatalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer catalog.Close()

	count, err := catalog.Count(ctx)
	if err != nil {
		return fmt.Errorf("count: %w", err)
	}

	fmt.Printf("Database:   %s\n", cfg.Store.DatabasePath)
	fmt.Printf("Collection: %s\n", cfg.Store.Collection)
	fmt.Printf("Products:   %d\n", count)

	engine, err := buildEngine()
	if err != nil {
		fmt.Printf("Embedding:  unavailable (%v)\n", err)
		return nil
	}
	fmt.Printf("Embedding:  %s (%d dimensions)\n", engine.Name(), engine.Dimensions())

	if count > 0 {
		entries, err := catalog.List(ctx, 5)
		if err == nil && len(entries) > 0 {
			fmt.Println("Recently updated:")
			for _, e := range entries {
				fmt.Printf("  - %s\n", e.Metadata["name"])
			}
		}
	}
	return nil
}
