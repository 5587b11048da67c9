// Package signal derives the keywords a batch of images has in common.
package signal

import (
	"math"
	"sort"
	"strings"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

const (
	// MaxCommonKeywords caps CommonSignal.Keywords
	MaxCommonKeywords = 20

	// DefaultKeywordsPerImage is the assumed tag count per image used by the confidence heuristic
	DefaultKeywordsPerImage = 10.0

	voteFraction = 0.5
)

// Extractor votes tokens across images.
type Extractor struct {
	keywordsPerImage float64
}

// NewExtractor creates an extractor; a non-positive keywordsPerImage uses the default.
func NewExtractor(keywordsPerImage float64) *Extractor {
	if keywordsPerImage <= 0 {
		keywordsPerImage = DefaultKeywordsPerImage
	}
	return &Extractor{keywordsPerImage: keywordsPerImage}
}

// TokenCount is a token and the number of images it appeared in.
type TokenCount struct {
	Token string
	Count int
}

// Threshold is the minimum number of images a token must appear in.
func Threshold(imageCount int) int {
	t := int(math.Floor(float64(imageCount) * voteFraction))
	if t < 1 {
		return 1
	}
	return t
}

// Ranked counts every token once per image and returns them by count
// descending, ties kept in first-seen order.
func Ranked(tagSets []models.ImageTagSet) []TokenCount {
	counts := make(map[string]int)
	var order []string

	for _, ts := range tagSets {
		seen := make(map[string]bool)
		for _, raw := range ts.Tokens() {
			tok := strings.ToLower(strings.TrimSpace(raw))
			if tok == "" || seen[tok] {
				continue
			}
			seen[tok] = true
			if _, ok := counts[tok]; !ok {
				order = append(order, tok)
			}
			counts[tok]++
		}
	}

	ranked := make([]TokenCount, len(order))
	for i, tok := range order {
		ranked[i] = TokenCount{Token: tok, Count: counts[tok]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// Extract computes the common signal of tagSets. Failed images count toward n.
// Frequency holds every token seen; Keywords only those that pass the vote.
func (e *Extractor) Extract(tagSets []models.ImageTagSet) models.CommonSignal {
	n := len(tagSets)
	if n == 0 {
		return models.CommonSignal{Keywords: []string{}, Frequency: map[string]int{}}
	}

	threshold := Threshold(n)
	keywords := []string{}
	frequency := make(map[string]int)
	total := 0

	for _, tc := range Ranked(tagSets) {
		frequency[tc.Token] = tc.Count
		total += tc.Count
		if tc.Count < threshold || len([]rune(tc.Token)) <= 1 || len(keywords) == MaxCommonKeywords {
			continue
		}
		keywords = append(keywords, tc.Token)
	}

	// Keyword mass of the batch, not a probability.
	confidence := float64(total) / (float64(n) * e.keywordsPerImage)
	if confidence > 1 {
		confidence = 1
	}

	return models.CommonSignal{
		Keywords:   keywords,
		Frequency:  frequency,
		Confidence: confidence,
	}
}
