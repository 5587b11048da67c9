// Package sources provides the catalogs candidate artworks are drawn from.
package sources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// ErrSourceUnavailable is returned when a source refuses or fails a search.
var ErrSourceUnavailable = errors.New("source unavailable")

// Adapter searches one catalog. Records are returned in the source's raw shape.
type Adapter interface {
	ID() string
	Internal() bool
	Search(ctx context.Context, keywords []string, limit int) ([]models.RawRecord, error)
}

// TimeoutProvider is implemented by adapters that carry their own search timeout.
type TimeoutProvider interface {
	Timeout() time.Duration
}

// recordText flattens the string content of a record for keyword matching.
func recordText(r models.RawRecord) string {
	var b strings.Builder
	for _, v := range r {
		switch val := v.(type) {
		case string:
			b.WriteString(strings.ToLower(val))
			b.WriteByte(' ')
		case []any:
			for _, item := range val {
				if s, ok := item.(string); ok {
					b.WriteString(strings.ToLower(s))
					b.WriteByte(' ')
				}
			}
		case []string:
			for _, s := range val {
				b.WriteString(strings.ToLower(s))
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

// matchRecords returns records containing any keyword, in input order, up to limit.
// With no keywords every record matches.
func matchRecords(records []models.RawRecord, keywords []string, limit int) []models.RawRecord {
	var out []models.RawRecord
	for _, r := range records {
		if limit > 0 && len(out) >= limit {
			break
		}
		if len(keywords) == 0 {
			out = append(out, r)
			continue
		}
		text := recordText(r)
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(text, kw) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
