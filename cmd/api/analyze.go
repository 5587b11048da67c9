package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/anime-shed/artwork-matcher/internal/container"
	"github.com/anime-shed/artwork-matcher/internal/service"
)

func newAnalyzeCmd() *cobra.Command {
	var identity string

	cmd := &cobra.Command{
		Use:   "analyze <image> [image...]",
		Short: "Analyze local image files and print the result as JSON",
		Example: `  # Free tier, no identity needed
  artwork-matcher analyze a.jpg b.jpg

  # Paid tier for a user with a recorded payment
  artwork-matcher analyze --user alice *.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			images := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				images = append(images, data)
			}

			ctx := cmd.Context()
			c, err := container.NewContainer(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Service().AnalyzeBatch(ctx, service.BatchRequest{Images: images, Identity: identity})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVarP(&identity, "user", "u", "", "User id for paid tiers")

	return cmd
}
