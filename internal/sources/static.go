package sources

import (
	"context"
	"time"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// StaticAdapter serves a fixed record list, typically from the sources file.
type StaticAdapter struct {
	id       string
	internal bool
	timeout  time.Duration
	records  []models.RawRecord
}

// NewStaticAdapter creates a static adapter over records.
func NewStaticAdapter(id string, internal bool, timeout time.Duration, records []models.RawRecord) *StaticAdapter {
	return &StaticAdapter{id: id, internal: internal, timeout: timeout, records: records}
}

func (a *StaticAdapter) ID() string             { return a.id }
func (a *StaticAdapter) Internal() bool         { return a.internal }
func (a *StaticAdapter) Timeout() time.Duration { return a.timeout }

// Search returns records mentioning any keyword.
func (a *StaticAdapter) Search(ctx context.Context, keywords []string, limit int) ([]models.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return matchRecords(a.records, keywords, limit), nil
}
