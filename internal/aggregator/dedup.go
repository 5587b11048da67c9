package aggregator

import (
	"net/url"
	"strings"

	"github.com/arbovm/levenshtein"
	"github.com/codycollier/wer"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

const (
	minTitleSimilarity = 0.9
	maxTitleWER        = 0.2
)

// NormalizeImageURL lower-cases scheme and host, drops the fragment and a trailing slash.
func NormalizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// TitleSimilarity is 1 minus the Levenshtein distance over the longer title length.
func TitleSimilarity(a, b string) float64 {
	a, b = normalizeText(a), normalizeText(b)
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.Distance(a, b))/float64(longest)
}

// nearDuplicateTitle compares characters and words so that both typos and
// small word insertions collapse.
func nearDuplicateTitle(a, b string) bool {
	a, b = normalizeText(a), normalizeText(b)
	if a == "" || b == "" || a == strings.ToLower(untitled) || b == strings.ToLower(untitled) {
		return false
	}
	if a == b || TitleSimilarity(a, b) >= minTitleSimilarity {
		return true
	}
	refWords, candWords := strings.Fields(a), strings.Fields(b)
	if len(refWords) < 3 || len(candWords) < 3 {
		return false
	}
	rate, _ := wer.WER(refWords, candWords)
	return rate <= maxTitleWER
}

// Dedup keeps the first of any candidates sharing an image URL, or sharing
// an artist with a near-identical title.
func Dedup(candidates []models.CandidateArtwork) []models.CandidateArtwork {
	seenURLs := make(map[string]bool, len(candidates))
	byArtist := make(map[string][]string)
	out := make([]models.CandidateArtwork, 0, len(candidates))

	for _, c := range candidates {
		key := NormalizeImageURL(c.BestImageURL())
		if key != "" && seenURLs[key] {
			continue
		}

		artist := normalizeText(c.Artist)
		if artist != "" {
			dup := false
			for _, title := range byArtist[artist] {
				if nearDuplicateTitle(title, c.Title) {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			byArtist[artist] = append(byArtist[artist], c.Title)
		}

		if key != "" {
			seenURLs[key] = true
		}
		out = append(out, c)
	}
	return out
}
