package access

import "github.com/anime-shed/artwork-matcher/pkg/models"

// Tier names as shown to callers and stored with payment records.
const (
	TierFree     = "Free"
	TierStandard = "Standard Pack"
	TierPremium  = "Premium Pack"
)

// MaxBatchImages is the hard cap on images in one batch.
const MaxBatchImages = 50

var (
	freeTier = models.Tier{
		Name:        TierFree,
		MaxImages:   3,
		PriceCents:  0,
		Description: "Analyze up to 3 images at no cost",
	}
	standardTier = models.Tier{
		Name:        TierStandard,
		MaxImages:   10,
		PriceCents:  500,
		Description: "Analyze 4 to 10 images in one batch",
	}
	premiumTier = models.Tier{
		Name:        TierPremium,
		MaxImages:   MaxBatchImages,
		PriceCents:  1000,
		Description: "Analyze 11 to 50 images in one batch",
	}
)

// TierFor maps an image count to its access tier. MaxBatchImages is
// enforced by the caller.
func TierFor(imageCount int) models.Tier {
	switch {
	case imageCount <= freeTier.MaxImages:
		return freeTier
	case imageCount <= standardTier.MaxImages:
		return standardTier
	default:
		return premiumTier
	}
}

// Tiers lists every tier in ascending price order.
func Tiers() []models.Tier {
	return []models.Tier{freeTier, standardTier, premiumTier}
}

// TierByName looks a tier up by its display name.
func TierByName(name string) (models.Tier, bool) {
	for _, t := range Tiers() {
		if t.Name == name {
			return t, true
		}
	}
	return models.Tier{}, false
}
