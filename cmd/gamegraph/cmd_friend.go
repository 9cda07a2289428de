package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamegraph/gamegraph/internal/models"
)

// actingUserFlag registers the --as flag naming the calling user.
func actingUserFlag(cmd *cobra.Command, username *string) {
	cmd.Flags().StringVar(username, "as", "", "username of the calling user (required)")
	_ = cmd.MarkFlagRequired("as")
}

// actingUser resolves the calling user's graph identity from the catalog.
func actingUser(ctx context.Context, a *app, username string) (models.UserRef, error) {
	u, err := a.catalog.GetUserByUsername(ctx, username)
	if err != nil {
		return models.UserRef{}, fmt.Errorf("looking up %q: %w", username, err)
	}
	return u.Ref(), nil
}

func friendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "friend",
		Short: "Manage KNOWS relationships",
	}
	cmd.AddCommand(friendAddCmd())
	return cmd
}

func friendAddCmd() *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "add [friend-username]",
		Short: "Record that the calling user knows another user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("friend add: %w", err)
			}
			defer a.Close()

			me, err := actingUser(ctx, a, as)
			if err != nil {
				return fmt.Errorf("friend add: %w", err)
			}
			if err := a.maintainer.AddFriend(ctx, me.ID, me.Username, args[0]); err != nil {
				return fmt.Errorf("friend add: %w", err)
			}

			fmt.Printf("%s now knows %s\n", me.Username, args[0])
			return nil
		},
	}

	actingUserFlag(cmd, &as)
	return cmd
}
