package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gamegraph/gamegraph/internal/models"
)

func playCmd() *cobra.Command {
	var (
		as     string
		status string
		rating int
	)

	cmd := &cobra.Command{
		Use:   "play [game-id]",
		Short: "Record that the calling user played a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			gameID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || gameID <= 0 {
				return fmt.Errorf("play: invalid game id %q", args[0])
			}

			var r *int
			if cmd.Flags().Changed("rating") {
				r = &rating
			}

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("play: %w", err)
			}
			defer a.Close()

			me, err := actingUser(ctx, a, as)
			if err != nil {
				return fmt.Errorf("play: %w", err)
			}
			title, err := a.maintainer.RecordActivity(ctx, me.ID, gameID, models.PlayStatus(status), r)
			if err != nil {
				return fmt.Errorf("play: %w", err)
			}

			fmt.Printf("Recorded %s playing %q (%s)\n", me.Username, title, status)
			return nil
		},
	}

	actingUserFlag(cmd, &as)
	cmd.Flags().StringVar(&status, "status", string(models.StatusPlaying), "play status")
	cmd.Flags().IntVar(&rating, "rating", 0, "rating 0-5 (omit for no rating)")
	return cmd
}
