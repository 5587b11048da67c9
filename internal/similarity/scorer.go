// Package similarity scores a candidate's keywords against a reference set.
package similarity

import (
	"math"
	"regexp"
	"strings"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

const (
	maxMatched     = 10
	partialWeight  = 0.5
	confidenceBias = 0.3
	minPartialLen  = 4
)

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Normalize lower-cases, trims and strips punctuation from tokens, dropping
// empties and duplicates while keeping first occurrence order.
func Normalize(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(t), ""))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Score compares reference keywords with candidate keywords. confidence is
// the reference signal's confidence and lifts the score by up to 0.3.
func Score(reference, candidate []string, confidence float64) models.SimilarityResult {
	ref := Normalize(reference)
	cand := Normalize(candidate)
	if len(ref) == 0 || len(cand) == 0 {
		return models.SimilarityResult{MatchedKeywords: []string{}, Confidence: confidence}
	}

	candSet := make(map[string]bool, len(cand))
	for _, c := range cand {
		candSet[c] = true
	}

	var exact, partial []string
	for _, r := range ref {
		if len(r) > 1 && candSet[r] {
			exact = append(exact, r)
		}
	}
	// Only the reference token has a length floor; a short candidate token
	// still matches when the reference contains it.
	for _, r := range ref {
		if len(r) < minPartialLen || candSet[r] {
			continue
		}
		for _, c := range cand {
			if strings.Contains(c, r) || strings.Contains(r, c) {
				partial = append(partial, r)
				break
			}
		}
	}

	weighted := float64(len(exact)) + partialWeight*float64(len(partial))
	percent := int(math.Round(100 * weighted / float64(len(ref))))
	base := weighted / float64(max(len(ref), len(cand)))
	score := math.Min(1, base+confidenceBias*confidence)

	matched := append(exact, partial...)
	if len(matched) > maxMatched {
		matched = matched[:maxMatched]
	}
	if matched == nil {
		matched = []string{}
	}

	return models.SimilarityResult{
		Score:               score,
		KeywordMatchPercent: percent,
		MatchedKeywords:     matched,
		Confidence:          confidence,
	}
}
