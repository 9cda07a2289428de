package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show graph and catalog statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			defer a.Close()

			stats, err := a.graph.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats: fetching graph statistics: %w", err)
			}
			users, err := a.catalog.CountUsers(ctx)
			if err != nil {
				return fmt.Errorf("stats: counting catalog users: %w", err)
			}
			pending, err := a.catalog.ListPendingMirrors(ctx, 0)
			if err != nil {
				return fmt.Errorf("stats: listing pending mirrors: %w", err)
			}

			fmt.Println("Catalog:")
			fmt.Printf("  %-12s %d\n", "users", users)
			fmt.Printf("  %-12s %d\n", "pending", len(pending))

			fmt.Println("\nGraph nodes:")
			fmt.Printf("  %-12s %d\n", "User", stats.Users)
			fmt.Printf("  %-12s %d\n", "Item", stats.Items)
			fmt.Printf("  %-12s %d\n", "Genre", stats.Genres)

			fmt.Println("\nGraph relationships:")
			fmt.Printf("  %-12s %d\n", "KNOWS", stats.Knows)
			fmt.Printf("  %-12s %d\n", "PLAYS", stats.Plays)
			fmt.Printf("  %-12s %d\n", "HAS_GENRE", stats.HasGenre)
			return nil
		},
	}
}
