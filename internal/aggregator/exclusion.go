package aggregator

import (
	"strings"

	"github.com/anime-shed/artwork-matcher/internal/config"
	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// defaultExclusionFields are inspected when a rule names no fields.
var defaultExclusionFields = []string{"source_url", "image_url", "thumbnail_url", "platform", "source"}

// ExclusionFilter drops candidates from denylisted platforms.
type ExclusionFilter struct {
	rules []config.ExclusionConfig
}

// NewExclusionFilter lower-cases patterns once.
func NewExclusionFilter(rules []config.ExclusionConfig) *ExclusionFilter {
	compiled := make([]config.ExclusionConfig, 0, len(rules))
	for _, r := range rules {
		fields := r.Fields
		if len(fields) == 0 {
			fields = defaultExclusionFields
		}
		patterns := make([]string, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				patterns = append(patterns, p)
			}
		}
		compiled = append(compiled, config.ExclusionConfig{Name: r.Name, Fields: fields, Patterns: patterns})
	}
	return &ExclusionFilter{rules: compiled}
}

// Match returns the name of the first rule c violates.
func (f *ExclusionFilter) Match(c models.CandidateArtwork) (string, bool) {
	for _, r := range f.rules {
		for _, field := range r.Fields {
			value := strings.ToLower(candidateField(c, field))
			if value == "" {
				continue
			}
			for _, p := range r.Patterns {
				if strings.Contains(value, p) {
					return r.Name, true
				}
			}
		}
	}
	return "", false
}

func candidateField(c models.CandidateArtwork, field string) string {
	switch field {
	case "id":
		return c.ID
	case "title":
		return c.Title
	case "artist":
		return c.Artist
	case "image_url":
		return c.ImageURL
	case "thumbnail_url":
		return c.ThumbnailURL
	case "source_url":
		return c.SourceURL
	case "platform":
		return c.Platform
	case "source":
		return c.Source
	default:
		return ""
	}
}
