package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := config.LoadConfig()
	slog.SetDefault(cfg.NewLogger())

	root := &cobra.Command{
		Use:           "postflow",
		Short:         "Queue and post submissions to social accounts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newServeCommand(cfg),
		newMigrateCommand(cfg),
		newKeygenCommand(),
		newTokenCommand(cfg),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
