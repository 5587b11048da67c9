package aggregator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// fieldAliases lists, per candidate field, the record keys tried in order.
// Supporting a new source shape usually means adding a key here.
var fieldAliases = struct {
	ID, Title, Artist, ImageURL, ThumbnailURL, SourceURL, Platform, Keywords []string
}{
	ID:           []string{"id", "objectID", "object_id", "identifier", "uuid"},
	Title:        []string{"title", "name", "artwork_title", "label"},
	Artist:       []string{"artist", "artistDisplayName", "artist_name", "artist_title", "creator", "author"},
	ImageURL:     []string{"image_url", "imageUrl", "primaryImage", "image", "full_image_url"},
	ThumbnailURL: []string{"thumbnail_url", "thumbnailUrl", "primaryImageSmall", "thumbnail", "preview_url"},
	SourceURL:    []string{"source_url", "sourceUrl", "objectURL", "permalink", "link", "url"},
	Platform:     []string{"platform", "site", "provider", "domain"},
	Keywords:     []string{"tags", "keywords", "subjects", "classification", "style_titles"},
}

const untitled = "Untitled"

// Normalize maps a raw record onto CandidateArtwork using the alias table.
// index is the record's position in its source and backs a missing id.
func Normalize(rec models.RawRecord, sourceID string, internal bool, index int) models.CandidateArtwork {
	c := models.CandidateArtwork{
		ID:           firstString(rec, fieldAliases.ID),
		Title:        firstString(rec, fieldAliases.Title),
		Artist:       firstString(rec, fieldAliases.Artist),
		ImageURL:     firstString(rec, fieldAliases.ImageURL),
		ThumbnailURL: firstString(rec, fieldAliases.ThumbnailURL),
		SourceURL:    firstString(rec, fieldAliases.SourceURL),
		Platform:     firstString(rec, fieldAliases.Platform),
		Source:       sourceID,
		Internal:     internal,
		Keywords:     firstList(rec, fieldAliases.Keywords),
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("%s-%d", sourceID, index)
	}
	if c.Title == "" {
		c.Title = untitled
	}
	if c.Platform == "" {
		c.Platform = sourceID
	}
	return c
}

func firstString(rec models.RawRecord, keys []string) string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if s := scalarString(v); s != "" {
			return s
		}
	}
	return ""
}

func scalarString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return ""
	default:
		return ""
	}
}

// firstList accepts string arrays, mixed arrays and comma separated strings.
func firstList(rec models.RawRecord, keys []string) []string {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		var out []string
		switch val := v.(type) {
		case string:
			for _, part := range strings.Split(val, ",") {
				if p := strings.TrimSpace(part); p != "" {
					out = append(out, p)
				}
			}
		case []string:
			for _, s := range val {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		case []any:
			for _, item := range val {
				if s, ok := item.(string); ok {
					if s = strings.TrimSpace(s); s != "" {
						out = append(out, s)
					}
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{}
}
