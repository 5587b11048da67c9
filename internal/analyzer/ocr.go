//go:build ocr

package analyzer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/otiai10/gosseract/v2"
)

// tesseractExtractor wraps a single gosseract client; the client is not
// safe for concurrent use so calls are serialized.
type tesseractExtractor struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewTextExtractor creates a Tesseract backed extractor for language.
func NewTextExtractor(language string) (TextExtractor, error) {
	client := gosseract.NewClient()
	if language == "" {
		language = "eng"
	}
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	return &tesseractExtractor{client: client}, nil
}

func (e *tesseractExtractor) ExtractText(ctx context.Context, data []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to load image for OCR: %w", err)
	}
	text, err := e.client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	return ocrWords(text), nil
}

func (e *tesseractExtractor) Close() error {
	return e.client.Close()
}

// ocrWords keeps alphabetic words of three or more letters.
func ocrWords(text string) []string {
	var words []string
	for _, w := range strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if len([]rune(w)) >= 3 {
			words = append(words, strings.ToLower(w))
		}
	}
	return words
}
