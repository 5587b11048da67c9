package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anime-shed/artwork-matcher/internal/repository"
)

func newAuditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List the most recent completed batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DataDir == "" {
				return fmt.Errorf("DATA_DIR is not set")
			}

			db, err := repository.OpenBadger(cfg.DataDir)
			if err != nil {
				return err
			}
			defer db.Close()

			entries, err := repository.NewBadgerAuditRepository(db).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tBATCH\tTIER\tIMAGES\tCONFIDENCE\tKEYWORDS")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
					e.CreatedAt.Format("2006-01-02 15:04:05"), e.BatchID, e.Tier,
					e.ImageCount, e.Confidence, strings.Join(e.CommonKeywords, ","))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")

	return cmd
}
