package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create catalog tables and graph uniqueness constraints",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			// openApp already ensures both schemas; the graph call is repeated so a
			// failure is reported instead of logged.
			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer a.Close()

			if err := a.graph.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("migrate: graph schema: %w", err)
			}

			fmt.Printf("Catalog schema: OK (%s)\n", a.catalog.Path())
			fmt.Printf("Graph schema:   OK (%s)\n", cfg.Graph.Backend)
			return nil
		},
	}
}
