package sources

import (
	"context"

	"github.com/anime-shed/artwork-matcher/internal/config"
	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// RegistryID is the source id of the first-party catalog.
const RegistryID = "registry"

// RegistryAdapter exposes first-party registry entries as an internal source.
type RegistryAdapter struct {
	records []models.RawRecord
}

// NewRegistryAdapter converts registry entries to raw records once.
func NewRegistryAdapter(entries []config.RegistryEntry) *RegistryAdapter {
	records := make([]models.RawRecord, 0, len(entries))
	for _, e := range entries {
		tags := make([]any, len(e.Tags))
		for i, t := range e.Tags {
			tags[i] = t
		}
		records = append(records, models.RawRecord{
			"id":            e.ID,
			"title":         e.Title,
			"artist":        e.Artist,
			"image_url":     e.ImageURL,
			"thumbnail_url": e.ThumbnailURL,
			"tags":          tags,
			"platform":      RegistryID,
		})
	}
	return &RegistryAdapter{records: records}
}

func (a *RegistryAdapter) ID() string     { return RegistryID }
func (a *RegistryAdapter) Internal() bool { return true }

// Search returns registry entries mentioning any keyword.
func (a *RegistryAdapter) Search(ctx context.Context, keywords []string, limit int) ([]models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matchRecords(a.records, keywords, limit), nil
}
