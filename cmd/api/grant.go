package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anime-shed/artwork-matcher/internal/access"
	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/internal/repository"
)

// tierAliases lets operators type short tier names.
var tierAliases = map[string]string{
	"standard": access.TierStandard,
	"premium":  access.TierPremium,
}

func resolveTier(name string) (string, int, error) {
	if full, ok := tierAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		name = full
	}
	tier, ok := access.TierByName(name)
	if !ok || tier.IsFree() {
		return "", 0, fmt.Errorf("unknown paid tier %q (use standard or premium)", name)
	}
	return tier.Name, tier.PriceCents, nil
}

func newGrantCmd() *cobra.Command {
	var identity, tierName string

	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Record a completed payment for a user",
		Long: `Records a completed payment in the data store read by the access gate.
The grant is valid for PAYMENT_WINDOW from now. DATA_DIR must point at the
store used by the server.`,
		Example: `  artwork-matcher grant --user alice --tier standard`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.DataDir == "" {
				return fmt.Errorf("DATA_DIR is not set; a grant to the in-memory store would be lost")
			}

			name, price, err := resolveTier(tierName)
			if err != nil {
				return err
			}

			db, err := repository.OpenBadger(cfg.DataDir)
			if err != nil {
				return err
			}
			defer db.Close()

			p, err := repository.NewBadgerPaymentRepository(db).RecordPayment(cmd.Context(), repository.Payment{
				Identity:    identity,
				Tier:        name,
				AmountCents: price,
				Status:      repository.PaymentCompleted,
			})
			if err != nil {
				return err
			}

			logger.WithField("payment_id", p.ID).Info("Payment recorded")
			fmt.Fprintf(cmd.OutOrStdout(), "granted %s to %s (payment %s, valid %s)\n",
				p.Tier, p.Identity, p.ID, cfg.PaymentWindow)
			return nil
		},
	}

	cmd.Flags().StringVarP(&identity, "user", "u", "", "User id to grant")
	cmd.Flags().StringVarP(&tierName, "tier", "t", "", "Tier to grant: standard or premium")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("tier")

	return cmd
}
