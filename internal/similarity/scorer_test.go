package similarity

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" Red! ", "red", "", "  ", "Blue-Green", "?!"})
	want := []string{"red", "bluegreen"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name        string
		ref         []string
		cand        []string
		confidence  float64
		wantScore   float64
		wantPercent int
		wantMatched []string
	}{
		{
			name:        "exact half match with full confidence",
			ref:         []string{"red", "landscape"},
			cand:        []string{"red", "blue"},
			confidence:  1,
			wantScore:   0.8,
			wantPercent: 50,
			wantMatched: []string{"red"},
		},
		{
			name:        "empty reference",
			ref:         nil,
			cand:        []string{"red"},
			confidence:  1,
			wantScore:   0,
			wantPercent: 0,
			wantMatched: []string{},
		},
		{
			name:        "empty candidate after normalization",
			ref:         []string{"red"},
			cand:        []string{"!!", " "},
			confidence:  0.5,
			wantScore:   0,
			wantPercent: 0,
			wantMatched: []string{},
		},
		{
			name:        "partial match counts half",
			ref:         []string{"landscape", "river"},
			cand:        []string{"landscapes", "city"},
			confidence:  0,
			wantScore:   0.25,
			wantPercent: 25,
			wantMatched: []string{"landscape"},
		},
		{
			name:        "short tokens never match partially",
			ref:         []string{"sea"},
			cand:        []string{"seascape"},
			confidence:  0,
			wantScore:   0,
			wantPercent: 0,
			wantMatched: []string{},
		},
		{
			name:        "short candidate token inside reference",
			ref:         []string{"redwood"},
			cand:        []string{"red"},
			confidence:  0,
			wantScore:   0.5,
			wantPercent: 50,
			wantMatched: []string{"redwood"},
		},
		{
			name:        "score capped at one",
			ref:         []string{"forest", "night"},
			cand:        []string{"forest", "night"},
			confidence:  1,
			wantScore:   1,
			wantPercent: 100,
			wantMatched: []string{"forest", "night"},
		},
		{
			name:        "exact before partial",
			ref:         []string{"portraiture", "oil"},
			cand:        []string{"portrait", "oil"},
			confidence:  0,
			wantScore:   0.75,
			wantPercent: 75,
			wantMatched: []string{"oil", "portraiture"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score(tt.ref, tt.cand, tt.confidence)
			if !almostEqual(res.Score, tt.wantScore) {
				t.Errorf("Expected score %v, got %v", tt.wantScore, res.Score)
			}
			if res.KeywordMatchPercent != tt.wantPercent {
				t.Errorf("Expected percent %d, got %d", tt.wantPercent, res.KeywordMatchPercent)
			}
			if !reflect.DeepEqual(res.MatchedKeywords, tt.wantMatched) {
				t.Errorf("Expected matched %v, got %v", tt.wantMatched, res.MatchedKeywords)
			}
		})
	}
}

func TestScore_MatchedTruncated(t *testing.T) {
	tokens := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel", "india", "juliet", "kilo", "lima"}
	res := Score(tokens, tokens, 0)
	if len(res.MatchedKeywords) != 10 {
		t.Errorf("Expected 10 matched keywords, got %d", len(res.MatchedKeywords))
	}
	if res.KeywordMatchPercent != 100 {
		t.Errorf("Expected 100 percent, got %d", res.KeywordMatchPercent)
	}
}

func TestScore_Bounds(t *testing.T) {
	res := Score([]string{"a", "bb", "ccc", "dddd"}, []string{"dddddd", "bb", "zz"}, 0.7)
	if res.Score < 0 || res.Score > 1 {
		t.Errorf("Score out of range: %v", res.Score)
	}
	if res.KeywordMatchPercent < 0 || res.KeywordMatchPercent > 100 {
		t.Errorf("Percent out of range: %d", res.KeywordMatchPercent)
	}
}
