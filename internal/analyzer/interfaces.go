package analyzer

import (
	"context"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// ImageAnalyzer produces tags for one encoded image
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, data []byte) (models.ImageTagSet, error)
}

// TextExtractor reads visible text such as signatures and inscriptions
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) ([]string, error)
	Close() error
}
