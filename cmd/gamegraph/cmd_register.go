package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gamegraph/gamegraph/internal/auth"
	"github.com/gamegraph/gamegraph/internal/models"
)

func registerCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "register [username]",
		Short: "Create a catalog user and mirror it into the graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			username := strings.TrimSpace(args[0])
			if username == "" || email == "" || len(password) < 6 {
				return errors.New("register: username, --email and a --password of at least 6 characters are required")
			}

			a, err := openApp(ctx, logger)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			defer a.Close()

			hash, err := auth.HashPassword(password)
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}
			user, err := a.catalog.CreateUser(ctx, models.User{
				Username:     username,
				Email:        email,
				PasswordHash: hash,
			})
			if err != nil {
				return fmt.Errorf("register: %w", err)
			}

			if a.mirror.UserRegistered(ctx, user.Ref()) {
				fmt.Printf("Registered %s (id %d)\n", user.Username, user.ID)
			} else {
				fmt.Printf("Registered %s (id %d); graph mirror deferred, run `gamegraph reconcile`\n", user.Username, user.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "password, 6 to 72 characters (required)")
	return cmd
}
