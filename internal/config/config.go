package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host               string
	Port               string
	LogLevel           string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	// Batch limits
	MaxImages       int
	AnalysisWorkers int
	InternalLimit   int
	ExternalLimit   int

	// Common-signal confidence heuristic: assumed keywords per image
	KeywordsPerImage float64

	// Access gate
	PaymentWindow time.Duration
	DataDir       string

	// Candidate sources
	SourcesFile   string
	SourceTimeout time.Duration
	Sources       *SourcesFile

	// Reachability validation
	ProbeTimeout        time.Duration
	ValidationCacheTTL  time.Duration
	ValidationSweep     time.Duration
	ValidationBatchSize int

	// Analyzers
	GeminiAPIKey string
	GeminiModel  string
	EnableOCR    bool

	// Azure blob storage for referenced uploads
	AzureAccountName string
	AzureAccountKey  string
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 60*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 20*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 100*1024*1024), // 100MB

		MaxImages:       int(parseIntOrDefault("MAX_IMAGES", 50)),
		AnalysisWorkers: int(parseIntOrDefault("ANALYSIS_WORKERS", 4)),
		InternalLimit:   int(parseIntOrDefault("INTERNAL_LIMIT", 10)),
		ExternalLimit:   int(parseIntOrDefault("EXTERNAL_LIMIT", 20)),

		KeywordsPerImage: parseFloatOrDefault("KEYWORDS_PER_IMAGE", 10),

		PaymentWindow: parseDurationOrDefault("PAYMENT_WINDOW", 24*time.Hour),
		DataDir:       os.Getenv("DATA_DIR"),

		SourcesFile:   os.Getenv("SOURCES_FILE"),
		SourceTimeout: parseDurationOrDefault("SOURCE_TIMEOUT", 10*time.Second),

		ProbeTimeout:        parseDurationOrDefault("PROBE_TIMEOUT", 5*time.Second),
		ValidationCacheTTL:  parseDurationOrDefault("VALIDATION_CACHE_TTL", 5*time.Minute),
		ValidationSweep:     parseDurationOrDefault("VALIDATION_SWEEP_INTERVAL", time.Minute),
		ValidationBatchSize: int(parseIntOrDefault("VALIDATION_BATCH_SIZE", 10)),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		EnableOCR:    parseBoolOrDefault("ENABLE_OCR", false),

		AzureAccountName: os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureAccountKey:  os.Getenv("AZURE_STORAGE_KEY"),
	}

	// Validate port is numeric and in range
	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.AnalysisTimeout)
	}
	if cfg.MaxImages < 1 {
		return nil, fmt.Errorf("MAX_IMAGES must be >= 1 (got %d)", cfg.MaxImages)
	}
	if cfg.ValidationBatchSize < 1 {
		return nil, fmt.Errorf("VALIDATION_BATCH_SIZE must be >= 1 (got %d)", cfg.ValidationBatchSize)
	}
	if cfg.KeywordsPerImage <= 0 {
		return nil, fmt.Errorf("KEYWORDS_PER_IMAGE must be > 0 (got %v)", cfg.KeywordsPerImage)
	}

	sources, err := LoadSourcesFile(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	cfg.Sources = sources

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}
