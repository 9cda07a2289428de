package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamegraph/gamegraph/internal/lifecycle"
)

func reconcileCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Mirror users whose graph write was deferred while the graph was down",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			defer a.Close()

			lm := lifecycle.NewManager(a.catalog, a.maintainer, lifecycle.Options{
				BatchSize:     cfg.Graph.ReconcileBatch,
				RatePerSecond: cfg.Graph.ReconcileRate,
			}, logger)
			report, err := lm.Run(ctx, dryRun)
			if err != nil {
				return fmt.Errorf("reconcile: running: %w", err)
			}

			fmt.Printf("Reconcile report:\n")
			fmt.Printf("  Reconciled:  %d\n", report.Reconciled)
			fmt.Printf("  Failed:      %d\n", report.Failed)
			fmt.Printf("  Remaining:   %d\n", report.Remaining)
			if dryRun {
				fmt.Println("  (dry run: no changes applied)")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview changes without applying")
	return cmd
}
