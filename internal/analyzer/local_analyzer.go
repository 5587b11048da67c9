package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/pkg/models"
)

const (
	localConfidence      = 0.5
	smallImageConfidence = 0.3
	smallImageSide       = 32
)

// LocalAnalyzer tags images from pixel statistics without calling out to a model.
type LocalAnalyzer struct {
	calc    MetricsCalculator
	ocr     TextExtractor
	options AnalysisOptions
}

// NewLocalAnalyzer creates a local analyzer. ocr may be nil.
func NewLocalAnalyzer(options AnalysisOptions, ocr TextExtractor) *LocalAnalyzer {
	return &LocalAnalyzer{
		calc:    NewMetricsCalculator(),
		ocr:     ocr,
		options: options.normalized(),
	}
}

// AnalyzeImage decodes data and derives colors, style, mood and keywords.
func (a *LocalAnalyzer) AnalyzeImage(ctx context.Context, data []byte) (models.ImageTagSet, error) {
	img, format, err := DecodeImage(data, a.options.MaxPixels)
	if err != nil {
		return models.ImageTagSet{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.ImageTagSet{}, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return models.ImageTagSet{}, fmt.Errorf("image has no pixels")
	}

	small := downscale(img, a.options.MaxDimension)
	gray := toGray(small)

	m := a.calc.CalculateBasicMetrics(small)
	laplacian := a.calc.CalculateLaplacianVariance(gray)
	edges := a.calc.CalculateEdgeDensity(gray)

	keywords := descriptiveKeywords(m, width, height, laplacian)
	if a.options.OCRMode && a.ocr != nil {
		words, err := a.ocr.ExtractText(ctx, data)
		if err != nil {
			logger.WithError(err).Debug("Text extraction failed")
		}
		keywords = appendUnique(keywords, words...)
	}
	if len(keywords) > a.options.MaxKeywords {
		keywords = keywords[:a.options.MaxKeywords]
	}

	confidence := localConfidence
	if width < smallImageSide || height < smallImageSide {
		confidence = smallImageConfidence
	}

	tags := models.ImageTagSet{
		Keywords:   keywords,
		Colors:     paletteColors(m, a.options.MaxColors, a.options.MinColorWeight),
		Style:      styleFor(m, edges, laplacian),
		Mood:       moodFor(m),
		Confidence: confidence,
	}

	logger.WithFields(logrus.Fields{
		"format":   format,
		"width":    width,
		"height":   height,
		"keywords": len(tags.Keywords),
		"style":    tags.Style,
	}).Debug("Local analysis complete")

	return tags, nil
}

func appendUnique(dst []string, words ...string) []string {
	seen := make(map[string]bool, len(dst)+len(words))
	for _, w := range dst {
		seen[w] = true
	}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		dst = append(dst, w)
	}
	return dst
}
