package models

import "time"

// ImageTagSet holds the tags produced for a single uploaded image.
// A zero value stands in for an image whose analysis failed.
type ImageTagSet struct {
	Keywords   []string `json:"keywords"`
	Colors     []string `json:"colors"`
	Style      string   `json:"style"`
	Mood       string   `json:"mood"`
	Confidence float64  `json:"confidence"`
}

// IsZero reports whether the tag set carries no information.
func (t ImageTagSet) IsZero() bool {
	return len(t.Keywords) == 0 && len(t.Colors) == 0 && t.Style == "" && t.Mood == "" && t.Confidence == 0
}

// Tokens returns keywords, colors, style and mood in that order.
func (t ImageTagSet) Tokens() []string {
	tokens := make([]string, 0, len(t.Keywords)+len(t.Colors)+2)
	tokens = append(tokens, t.Keywords...)
	tokens = append(tokens, t.Colors...)
	if t.Style != "" {
		tokens = append(tokens, t.Style)
	}
	if t.Mood != "" {
		tokens = append(tokens, t.Mood)
	}
	return tokens
}

// CommonSignal is the cross-image keyword vote over one batch
type CommonSignal struct {
	Keywords   []string       `json:"keywords"`
	Frequency  map[string]int `json:"frequency"`
	Confidence float64        `json:"confidence"`
}

// SimilarityResult is the pairwise score between a reference keyword set and a candidate
type SimilarityResult struct {
	Score               float64  `json:"score"`
	KeywordMatchPercent int      `json:"keyword_match_percent"`
	MatchedKeywords     []string `json:"matched_keywords"`
	Confidence          float64  `json:"confidence"`
}

// RawRecord is a search hit as returned by a source, before normalization.
type RawRecord map[string]any

// CandidateArtwork is the normalized view of an artwork from any source
type CandidateArtwork struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	Artist       string            `json:"artist"`
	ImageURL     string            `json:"image_url"`
	ThumbnailURL string            `json:"thumbnail_url,omitempty"`
	SourceURL    string            `json:"source_url,omitempty"`
	Platform     string            `json:"platform,omitempty"`
	Source       string            `json:"source"`
	Internal     bool              `json:"internal"`
	Keywords     []string          `json:"keywords"`
	Similarity   *SimilarityResult `json:"similarity,omitempty"`
}

// BestImageURL returns the primary image URL, falling back to the thumbnail.
func (c CandidateArtwork) BestImageURL() string {
	if c.ImageURL != "" {
		return c.ImageURL
	}
	return c.ThumbnailURL
}

// Score returns the attached similarity score or 0 when unscored.
func (c CandidateArtwork) Score() float64 {
	if c.Similarity == nil {
		return 0
	}
	return c.Similarity.Score
}

// Tier is an access bracket determined by image count
type Tier struct {
	Name        string `json:"name"`
	MaxImages   int    `json:"max_images"`
	PriceCents  int    `json:"price_cents"`
	Description string `json:"description"`
}

// IsFree reports whether the tier costs nothing.
func (t Tier) IsFree() bool {
	return t.PriceCents == 0
}

// AccessDecision is the outcome of the access gate for a single request.
type AccessDecision struct {
	CanAnalyze      bool   `json:"can_analyze"`
	PaymentRequired bool   `json:"payment_required"`
	Tier            Tier   `json:"tier"`
	Error           string `json:"error,omitempty"`
	// StorageFailure marks a denial caused by the payment store being unreachable.
	StorageFailure bool `json:"-"`
	// LoginRequired marks a paid tier requested without an identity.
	LoginRequired bool `json:"-"`
}

// ImageReport pairs one uploaded image with its tags
type ImageReport struct {
	Index       int         `json:"index"`
	Tags        ImageTagSet `json:"tags"`
	Failed      bool        `json:"failed,omitempty"`
	DuplicateOf *int        `json:"duplicate_of,omitempty"`
}

// TopMatch summarizes one of the best scoring candidates
type TopMatch struct {
	Title           string   `json:"title"`
	Score           float64  `json:"score"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// SimilarityStats aggregates scores over all validated candidates
type SimilarityStats struct {
	AverageScore float64    `json:"average_score"`
	TopMatches   []TopMatch `json:"top_matches"`
}

// AnalysisResult is the payload of a completed batch.
type AnalysisResult struct {
	ID                 string             `json:"id"`
	ImageCount         int                `json:"image_count"`
	Tier               string             `json:"tier"`
	Images             []ImageReport      `json:"images"`
	CommonSignal       *CommonSignal      `json:"common_signal,omitempty"`
	Query              []string           `json:"query"`
	InternalCandidates []CandidateArtwork `json:"internal_candidates"`
	ExternalCandidates []CandidateArtwork `json:"external_candidates"`
	Stats              SimilarityStats    `json:"similarity_stats"`
	ProcessingTimeMs   int64              `json:"processing_time_ms"`
	CompletedAt        time.Time          `json:"completed_at"`
}

// RejectedResponse is returned when the access gate denies a batch.
type RejectedResponse struct {
	PaymentRequired bool   `json:"payment_required"`
	LoginRequired   bool   `json:"login_required,omitempty"`
	Tier            Tier   `json:"tier"`
	ImageCount      int    `json:"image_count"`
	Message         string `json:"message"`
}

// BatchStatus is the terminal state reported to callers
type BatchStatus string

const (
	BatchComplete BatchStatus = "complete"
	BatchRejected BatchStatus = "rejected"
)

// BatchResponse carries exactly one of Result or Rejection.
type BatchResponse struct {
	Status    BatchStatus       `json:"status"`
	Result    *AnalysisResult   `json:"result,omitempty"`
	Rejection *RejectedResponse `json:"rejection,omitempty"`
}
