package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func recommendCmd() *cobra.Command {
	var (
		as      string
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:       "recommend [friends|genre|people]",
		Short:     "Rank games or people for the calling user",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"friends", "genre", "people"},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}
			defer a.Close()

			me, err := actingUser(ctx, a, as)
			if err != nil {
				return fmt.Errorf("recommend: %w", err)
			}

			var result any
			switch args[0] {
			case "friends":
				recs, err := a.engine.RecommendByFriendsActivity(ctx, me.ID)
				if err != nil {
					return fmt.Errorf("recommend: %w", err)
				}
				if !jsonOut {
					if len(recs) == 0 {
						fmt.Println("No games from friends yet.")
					}
					for i, r := range recs {
						fmt.Printf("%2d. %-32s played by %s (last %s)\n", i+1, r.Title,
							strings.Join(r.PlayedByFriends, ", "), r.LastPlayed.Format("2006-01-02 15:04"))
					}
					return nil
				}
				result = recs
			case "genre":
				recs, err := a.engine.RecommendByGenre(ctx, me.ID)
				if err != nil {
					return fmt.Errorf("recommend: %w", err)
				}
				if !jsonOut {
					if recs.Message != "" {
						fmt.Println(recs.Message)
					}
					for i, r := range recs.Items {
						fmt.Printf("%2d. %-32s %s\n", i+1, r.Title, strings.Join(r.CommonGenres, ", "))
					}
					return nil
				}
				result = recs
			case "people":
				recs, err := a.engine.SuggestFriends(ctx, me.ID)
				if err != nil {
					return fmt.Errorf("recommend: %w", err)
				}
				if !jsonOut {
					if len(recs) == 0 {
						fmt.Println("No suggestions yet.")
					}
					for i, r := range recs {
						via := "shared genres"
						if r.IsFOF {
							via = "friend of a friend"
						}
						fmt.Printf("%2d. %-16s score %d, %s [%s]\n", i+1, r.Username, r.Score, via,
							strings.Join(r.CommonGenres, ", "))
					}
					return nil
				}
				result = recs
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	actingUserFlag(cmd, &as)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON instead of a table")
	return cmd
}
