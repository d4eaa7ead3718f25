package main

import (
	"errors"
	"fmt"
	"time"

	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/db"
	"github.com/maheshrc27/postflow/pkg/utils"
	"github.com/spf13/cobra"
)

func newMigrateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(cmd.Context(), cfg.PostgresURI)
			if err != nil {
				return err
			}
			defer conn.Close()
			return db.Migrate(cmd.Context(), conn)
		},
	}
}

func newKeygenCommand() *cobra.Command {
	var length int
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a random value for SECRET_KEY",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := utils.GenerateRandomKey(length)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "bytes", 32, "number of random bytes")
	return cmd
}

func newTokenCommand(cfg *config.Config) *cobra.Command {
	var (
		user     string
		validFor time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for the API and the /login endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.SecretKey == "" {
				return errors.New("SECRET_KEY is not set")
			}
			token, err := utils.GenerateToken(cfg.SecretKey, user, validFor)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "operator", "user id stored in the token")
	cmd.Flags().DurationVar(&validFor, "valid-for", 30*24*time.Hour, "token lifetime")
	return cmd
}
