package analyzer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

const geminiPrompt = `You are tagging a photo of an artwork for similarity search.
Return only JSON with this shape:
{"keywords": [up to 10 short lowercase subject or technique words],
 "colors": [up to 3 dominant color names],
 "style": "one art style word",
 "mood": "one mood word",
 "confidence": number between 0 and 1}`

// GeminiAnalyzer tags images with a Gemini vision model.
type GeminiAnalyzer struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	maxPixels int
}

// NewGeminiAnalyzer creates a client for modelName authenticated with apiKey.
func NewGeminiAnalyzer(ctx context.Context, apiKey, modelName string, options AnalysisOptions) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	return &GeminiAnalyzer{
		client:    client,
		model:     model,
		maxPixels: options.normalized().MaxPixels,
	}, nil
}

// AnalyzeImage sends the image and prompt and parses the JSON reply.
func (g *GeminiAnalyzer) AnalyzeImage(ctx context.Context, data []byte) (models.ImageTagSet, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.ImageTagSet{}, fmt.Errorf("unsupported image format: %w", err)
	}
	if cfg.Width*cfg.Height > g.maxPixels {
		return models.ImageTagSet{}, fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height)
	}

	resp, err := g.model.GenerateContent(ctx, genai.ImageData(format, data), genai.Text(geminiPrompt))
	if err != nil {
		return models.ImageTagSet{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return models.ImageTagSet{}, fmt.Errorf("no candidates returned from Gemini")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return models.ImageTagSet{}, fmt.Errorf("empty content returned from Gemini")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	return parseTagResponse(text.String())
}

// Close releases the client
func (g *GeminiAnalyzer) Close() error {
	return g.client.Close()
}

type tagResponse struct {
	Keywords   []string `json:"keywords"`
	Colors     []string `json:"colors"`
	Style      string   `json:"style"`
	Mood       string   `json:"mood"`
	Confidence float64  `json:"confidence"`
}

// parseTagResponse accepts bare JSON or JSON wrapped in a markdown fence.
func parseTagResponse(text string) (models.ImageTagSet, error) {
	text = strings.TrimSpace(text)
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			text = text[start : end+1]
		}
	}

	var r tagResponse
	if err := json.Unmarshal([]byte(text), &r); err != nil {
		return models.ImageTagSet{}, fmt.Errorf("unexpected response format from Gemini: %w", err)
	}

	confidence := r.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return models.ImageTagSet{
		Keywords:   appendUnique(nil, r.Keywords...),
		Colors:     appendUnique(nil, r.Colors...),
		Style:      strings.ToLower(strings.TrimSpace(r.Style)),
		Mood:       strings.ToLower(strings.TrimSpace(r.Mood)),
		Confidence: confidence,
	}, nil
}
