package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamegraph/gamegraph/internal/config"
	"github.com/gamegraph/gamegraph/internal/seed"
)

func seedCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo games, users, friendships and plays",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			defer a.Close()

			if force {
				cfg.Seed.SkipThreshold = 0
			}
			report, err := runSeed(ctx, a)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}

			if report.Skipped {
				fmt.Println("Catalog already populated; nothing seeded (use --force to re-run).")
				return nil
			}
			fmt.Printf("Seed report:\n")
			fmt.Printf("  Games:        %d\n", report.Games)
			fmt.Printf("  Users:        %d\n", report.Users)
			fmt.Printf("  Friendships:  %d\n", report.Friendships)
			fmt.Printf("  Plays:        %d\n", report.Plays)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "seed even if the catalog already has users")
	return cmd
}

// runSeed ensures the graph schema and seeds a's stores using cfg.Seed. The
// memory graph starts empty on every run, so it is always re-seeded.
func runSeed(ctx context.Context, a *app) (*seed.Report, error) {
	// Plays are written concurrently; duplicate nodes are only prevented
	// once the uniqueness constraints exist.
	if err := a.graph.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensuring graph schema: %w", err)
	}
	opts := seed.Options{
		RandomSeed:    cfg.Seed.RandomSeed,
		Password:      cfg.Seed.Password,
		PlaysPerUser:  cfg.Seed.PlaysPerUser,
		SkipThreshold: cfg.Seed.SkipThreshold,
	}
	if cfg.Graph.Backend == config.BackendMemory {
		opts.SkipThreshold = 0
	}
	return seed.New(a.catalog, a.graph, a.maintainer, opts, a.logger).Run(ctx)
}
