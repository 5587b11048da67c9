package analyzer

import (
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	// Verify default values
	if opts.OCRMode {
		t.Error("Expected OCRMode to be false by default")
	}
	if opts.MaxKeywords != 10 {
		t.Errorf("Expected MaxKeywords to be 10, got %d", opts.MaxKeywords)
	}
	if opts.MaxColors != 3 {
		t.Errorf("Expected MaxColors to be 3, got %d", opts.MaxColors)
	}
	if opts.MaxDimension != 512 {
		t.Errorf("Expected MaxDimension to be 512, got %d", opts.MaxDimension)
	}
}

func TestOCROptions(t *testing.T) {
	opts := OCROptions()

	if !opts.OCRMode {
		t.Error("Expected OCRMode to be true for OCR options")
	}
	if opts.OCRLanguage != "eng" {
		t.Errorf("Expected OCRLanguage to be 'eng', got %s", opts.OCRLanguage)
	}
	if opts.MaxDimension <= DefaultOptions().MaxDimension {
		t.Errorf("Expected OCR to analyze at a larger size, got %d", opts.MaxDimension)
	}
}

func TestFastOptions(t *testing.T) {
	opts := FastOptions()

	if opts.MaxDimension >= DefaultOptions().MaxDimension {
		t.Errorf("Expected fast mode to downscale further, got %d", opts.MaxDimension)
	}
}

func TestOptionsChaining(t *testing.T) {
	opts := DefaultOptions().WithOCR("").WithLimits(5, 2).WithMaxDimension(256)

	if !opts.OCRMode || opts.OCRLanguage != "eng" {
		t.Errorf("Expected OCR with default language, got mode=%v lang=%s", opts.OCRMode, opts.OCRLanguage)
	}
	if opts.MaxKeywords != 5 || opts.MaxColors != 2 {
		t.Errorf("Expected limits 5/2, got %d/%d", opts.MaxKeywords, opts.MaxColors)
	}
	if opts.MaxDimension != 256 {
		t.Errorf("Expected MaxDimension 256, got %d", opts.MaxDimension)
	}
}

func TestOptionsNormalized(t *testing.T) {
	opts := AnalysisOptions{}.normalized()
	d := DefaultOptions()
	if opts.MaxKeywords != d.MaxKeywords || opts.MaxColors != d.MaxColors || opts.MaxDimension != d.MaxDimension {
		t.Errorf("Expected zero options to take defaults, got %+v", opts)
	}
}
