package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vigilx/pricewatch/internal/config"
	"github.com/vigilx/pricewatch/internal/generator"
	"github.com/vigilx/pricewatch/internal/store"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		users        = flag.Int("users", cfg.NumUsers, "number of users to generate")
		minItems     = flag.Int("min-items", cfg.MinItems, "minimum tracked items per user")
		maxItems     = flag.Int("max-items", cfg.MaxItems, "maximum tracked items per user")
		dropChance   = flag.Float64("drop-chance", cfg.DropChance, "probability a resolved item is below its paid price")
		resolvedRate = flag.Float64("resolved-rate", cfg.ResolvedRate, "probability an item carries a resolved current price")
		seed         = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir    = flag.String("output-dir", "", "directory to write users.json instead of seeding the store")
		writeStdout  = flag.Bool("stdout", false, "write dataset to stdout instead of seeding the store")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumUsers:     *users,
		MinItems:     *minItems,
		MaxItems:     *maxItems,
		DropChance:   clampProbability(*dropChance),
		ResolvedRate: clampProbability(*resolvedRate),
		Seed:         *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	gen := generator.New(genCfg)
	dataset, err := gen.Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *outputDir != "" {
		if err := generator.WriteDataset(dataset, *outputDir); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stdout, "Generated %d users into %s\n", len(dataset.Users), *outputDir)
		return
	}

	appCfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	st, err := openStore(ctx, appCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())

	if err := generator.Seed(ctx, st, dataset); err != nil {
		fmt.Fprintf(os.Stderr, "seeding failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Seeded %d users into the %s store\n", len(dataset.Users), appCfg.Store.Driver)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, store.PostgresOptions{
			DSN:      cfg.Store.PostgresDSN,
			MaxConns: cfg.Store.MaxConns,
		})
	case "memory":
		return nil, fmt.Errorf("the memory store cannot be seeded from a separate process, use -output-dir or -stdout")
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
