package access

import (
	"context"
	"strings"
	"time"

	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/pkg/models"

	"github.com/sirupsen/logrus"
)

// DefaultPaymentWindow is how far back a completed payment unlocks a paid tier.
const DefaultPaymentWindow = 24 * time.Hour

const (
	msgLoginRequired   = "login required to purchase a paid tier"
	msgPaymentRequired = "payment required for this tier"
	msgStorageError    = "unable to verify payment status: payment storage unavailable"
)

// PaymentLookup reports whether identity completed a payment for tierName
// within the last window.
type PaymentLookup interface {
	LookupRecentPayment(ctx context.Context, identity, tierName string, window time.Duration) (bool, error)
}

// Gate decides whether a batch may be analyzed. It only reads payment state.
type Gate struct {
	payments PaymentLookup
	window   time.Duration
}

// NewGate creates an access gate; a non-positive window uses DefaultPaymentWindow.
func NewGate(payments PaymentLookup, window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultPaymentWindow
	}
	return &Gate{payments: payments, window: window}
}

// NormalizeIdentity treats whitespace-only identities as absent.
func NormalizeIdentity(identity string) string {
	return strings.TrimSpace(identity)
}

// Check evaluates access for identity and imageCount. An empty identity is a guest.
func (g *Gate) Check(ctx context.Context, identity string, imageCount int) models.AccessDecision {
	identity = NormalizeIdentity(identity)
	tier := TierFor(imageCount)

	if tier.IsFree() {
		return models.AccessDecision{CanAnalyze: true, Tier: tier}
	}

	if identity == "" {
		return models.AccessDecision{
			PaymentRequired: true,
			LoginRequired:   true,
			Tier:            tier,
			Error:           msgLoginRequired,
		}
	}

	if g.payments == nil {
		return storageDenied(tier)
	}

	paid, err := g.payments.LookupRecentPayment(ctx, identity, tier.Name, g.window)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"identity": identity,
			"tier":     tier.Name,
		}).Error("Payment lookup failed")
		return storageDenied(tier)
	}

	if !paid {
		return models.AccessDecision{
			PaymentRequired: true,
			Tier:            tier,
			Error:           msgPaymentRequired,
		}
	}

	return models.AccessDecision{CanAnalyze: true, Tier: tier}
}

func storageDenied(tier models.Tier) models.AccessDecision {
	return models.AccessDecision{
		PaymentRequired: true,
		Tier:            tier,
		Error:           msgStorageError,
		StorageFailure:  true,
	}
}
