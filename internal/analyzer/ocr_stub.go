//go:build !ocr

package analyzer

import "errors"

// ErrOCRUnavailable is returned when the binary was built without the ocr tag.
var ErrOCRUnavailable = errors.New("OCR support not compiled in (build with -tags ocr)")

// NewTextExtractor reports that OCR is unavailable in this build.
func NewTextExtractor(language string) (TextExtractor, error) {
	return nil, ErrOCRUnavailable
}
