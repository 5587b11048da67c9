package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/anime-shed/artwork-matcher/internal/config"
	"github.com/anime-shed/artwork-matcher/internal/logger"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "artwork-matcher",
		Short: "Analyze artwork photos and recommend similar works",
		Long: `Artwork Matcher tags a batch of artwork images, finds what they have in
common and recommends similar works from the first-party registry and
configured external catalogs.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
		},
		SilenceUsage: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newAnalyzeCmd(),
		newGrantCmd(),
		newAuditCmd(),
	)

	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)
	return cfg, nil
}
