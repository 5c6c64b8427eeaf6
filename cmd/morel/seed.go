package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/morel-ai/morel/internal/catalog"
	"github.com/morel-ai/morel/internal/config"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the model catalog with a starter set of backends",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var seedModels = []catalog.UpsertModelInput{
	{
		ModelID:           "myco/spore-mini",
		Provider:          "myco",
		DisplayName:       "Spore Mini",
		Capabilities:      []string{"chat", "fast"},
		ContextWindow:     8192,
		InputCostPerMTok:  0.05,
		OutputCostPerMTok: 0.1,
	},
	{
		ModelID:           "openai/gpt-4o",
		Provider:          "openai",
		DisplayName:       "GPT-4o",
		Capabilities:      []string{"chat", "code", "vision"},
		ContextWindow:     128000,
		InputCostPerMTok:  2.5,
		OutputCostPerMTok: 10.0,
	},
	{
		ModelID:           "openai/gpt-4o-mini",
		Provider:          "openai",
		DisplayName:       "GPT-4o Mini",
		Capabilities:      []string{"chat", "code", "vision", "fast"},
		ContextWindow:     128000,
		InputCostPerMTok:  0.15,
		OutputCostPerMTok: 0.6,
	},
	{
		ModelID:           "openai/o1",
		Provider:          "openai",
		DisplayName:       "o1",
		Capabilities:      []string{"chat", "reasoning"},
		ContextWindow:     200000,
		InputCostPerMTok:  15.0,
		OutputCostPerMTok: 60.0,
	},
	{
		ModelID:           "anthropic/claude-3-5-sonnet",
		Provider:          "anthropic",
		DisplayName:       "Claude 3.5 Sonnet",
		Capabilities:      []string{"chat", "code", "reasoning", "long-context"},
		ContextWindow:     200000,
		InputCostPerMTok:  3.0,
		OutputCostPerMTok: 15.0,
	},
	{
		ModelID:           "anthropic/claude-3-5-haiku",
		Provider:          "anthropic",
		DisplayName:       "Claude 3.5 Haiku",
		Capabilities:      []string{"chat", "code", "fast"},
		ContextWindow:     200000,
		InputCostPerMTok:  0.8,
		OutputCostPerMTok: 4.0,
	},
	{
		ModelID:           "google/gemini-1.5-pro",
		Provider:          "google",
		DisplayName:       "Gemini 1.5 Pro",
		Capabilities:      []string{"chat", "reasoning", "long-context", "vision"},
		ContextWindow:     2000000,
		InputCostPerMTok:  1.25,
		OutputCostPerMTok: 5.0,
	},
	{
		ModelID:           "google/gemini-1.5-flash",
		Provider:          "google",
		DisplayName:       "Gemini 1.5 Flash",
		Capabilities:      []string{"chat", "vision", "fast"},
		ContextWindow:     1000000,
		InputCostPerMTok:  0.075,
		OutputCostPerMTok: 0.3,
	},
	{
		ModelID:           "meta/llama-3.3-70b",
		Provider:          "meta",
		DisplayName:       "Llama 3.3 70B",
		Capabilities:      []string{"chat", "code"},
		ContextWindow:     128000,
		InputCostPerMTok:  0.35,
		OutputCostPerMTok: 0.4,
	},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := catalog.NewStore(pool)

	// Check if seed has already run.
	existing, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("checking existing models: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("catalog already populated, skipping seed")
		return nil
	}

	for _, input := range seedModels {
		m, err := store.Upsert(ctx, input)
		if err != nil {
			return fmt.Errorf("seeding model %q: %w", input.ModelID, err)
		}
		slog.Info("seeded model", "model_id", m.ModelID, "provider", m.Provider)
	}

	fmt.Printf("\n=== Catalog Seeded ===\n")
	fmt.Printf("Models: %d registered\n", len(seedModels))
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl http://localhost:8080/api/v1/models\n")
	fmt.Printf("  curl -X POST http://localhost:8080/api/v1/recommend -d '{\"prompt\": \"Identify this Morchella specimen from spore measurements\"}'\n")

	return nil
}
