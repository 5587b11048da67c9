package analyzer

// AnalysisOptions provides flexible configuration for image analysis
type AnalysisOptions struct {
	// Output limits
	MaxKeywords int
	MaxColors   int

	// MinColorWeight is the share of pixels a color needs to be reported
	MinColorWeight float64

	// MaxDimension bounds the longest side analyzed; larger images are downscaled
	MaxDimension int

	// MaxPixels rejects images whose declared size exceeds it
	MaxPixels int

	// OCR-specific options
	OCRMode     bool
	OCRLanguage string
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		MaxKeywords:    10,
		MaxColors:      3,
		MinColorWeight: 0.1,
		MaxDimension:   512,
		MaxPixels:      50_000_000,
		OCRMode:        false,
	}
}

// OCROptions returns options for analysis that also reads inscriptions
func OCROptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.OCRMode = true
	opts.OCRLanguage = "eng"
	opts.MaxDimension = 1600 // OCR needs legible glyphs
	return opts
}

// FastOptions returns options for fast analysis
func FastOptions() AnalysisOptions {
	opts := DefaultOptions()
	opts.MaxDimension = 128
	return opts
}

// WithOCR returns options with OCR enabled for the given language
func (opts AnalysisOptions) WithOCR(language string) AnalysisOptions {
	opts.OCRMode = true
	if language == "" {
		language = "eng"
	}
	opts.OCRLanguage = language
	return opts
}

// WithLimits sets the keyword and color caps
func (opts AnalysisOptions) WithLimits(keywords, colors int) AnalysisOptions {
	opts.MaxKeywords = keywords
	opts.MaxColors = colors
	return opts
}

// WithMaxDimension sets the downscale bound
func (opts AnalysisOptions) WithMaxDimension(n int) AnalysisOptions {
	opts.MaxDimension = n
	return opts
}

// normalized fills zero fields with defaults
func (opts AnalysisOptions) normalized() AnalysisOptions {
	d := DefaultOptions()
	if opts.MaxKeywords <= 0 {
		opts.MaxKeywords = d.MaxKeywords
	}
	if opts.MaxColors <= 0 {
		opts.MaxColors = d.MaxColors
	}
	if opts.MinColorWeight <= 0 {
		opts.MinColorWeight = d.MinColorWeight
	}
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = d.MaxDimension
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = d.MaxPixels
	}
	return opts
}
