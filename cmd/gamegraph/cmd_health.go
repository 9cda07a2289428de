package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the catalog and graph stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			allOK := true

			c, err := newCatalog(ctx)
			if err != nil {
				fmt.Printf("Catalog: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = c.Close() }()
				if err := c.Ping(ctx); err != nil {
					fmt.Printf("Catalog: FAIL (%v)\n", err)
					allOK = false
				} else {
					fmt.Printf("Catalog: OK (%s)\n", c.Path())
				}
			}

			g, err := newGraph(ctx, logger)
			if err != nil {
				fmt.Printf("Graph: FAIL (%v)\n", err)
				allOK = false
			} else {
				defer func() { _ = g.Close(ctx) }()
				if err := g.Ping(ctx); err != nil {
					fmt.Printf("Graph: FAIL (%v)\n", err)
					allOK = false
				} else {
					fmt.Printf("Graph: OK (%s)\n", cfg.Graph.Backend)
				}
			}

			if cfg.Auth.JWTSecret == "" {
				fmt.Println("JWT secret: FAIL (not configured)")
				allOK = false
			} else {
				fmt.Println("JWT secret: OK")
			}

			if !allOK {
				return fmt.Errorf("one or more health checks failed")
			}
			return nil
		},
	}
}
