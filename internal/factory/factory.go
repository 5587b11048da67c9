package factory

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anime-shed/artwork-matcher/internal/analyzer"
	"github.com/anime-shed/artwork-matcher/internal/config"
	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/internal/storage"
)

// AnalyzerType represents different types of image analyzers
type AnalyzerType string

const (
	// LocalAnalyzer derives tags from pixel statistics
	LocalAnalyzer AnalyzerType = "local"
	// OCRAnalyzer is the local analyzer plus inscription text
	OCRAnalyzer AnalyzerType = "ocr"
	// GeminiAnalyzer asks a vision model
	GeminiAnalyzer AnalyzerType = "gemini"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage routes blob URLs to Azure and the rest over HTTP
	AzureStorage StorageType = "azure"
)

// CloseFunc releases resources held by a created component
type CloseFunc func() error

func noopClose() error { return nil }

// AnalyzerFactory creates image analyzers
type AnalyzerFactory interface {
	CreateAnalyzer(ctx context.Context, analyzerType AnalyzerType) (analyzer.ImageAnalyzer, CloseFunc, error)
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

type analyzerFactory struct {
	cfg *config.Config
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config) AnalyzerFactory {
	return &analyzerFactory{cfg: cfg}
}

// CreateAnalyzer creates an analyzer based on the specified type
func (f *analyzerFactory) CreateAnalyzer(ctx context.Context, analyzerType AnalyzerType) (analyzer.ImageAnalyzer, CloseFunc, error) {
	switch analyzerType {
	case LocalAnalyzer:
		return analyzer.NewLocalAnalyzer(analyzer.DefaultOptions(), nil), noopClose, nil
	case OCRAnalyzer:
		ocr, err := analyzer.NewTextExtractor("eng")
		if err != nil {
			return nil, nil, err
		}
		return analyzer.NewLocalAnalyzer(analyzer.OCROptions(), ocr), ocr.Close, nil
	case GeminiAnalyzer:
		g, err := analyzer.NewGeminiAnalyzer(ctx, f.cfg.GeminiAPIKey, f.cfg.GeminiModel, analyzer.DefaultOptions())
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported analyzer type: %s", analyzerType)
	}
}

// PreferredAnalyzer picks the analyzer type the configuration asks for.
func PreferredAnalyzer(cfg *config.Config) AnalyzerType {
	switch {
	case cfg.GeminiAPIKey != "":
		return GeminiAnalyzer
	case cfg.EnableOCR:
		return OCRAnalyzer
	default:
		return LocalAnalyzer
	}
}

// CreatePreferred creates the preferred analyzer, falling back to the local
// analyzer when it cannot be built.
func CreatePreferred(ctx context.Context, f AnalyzerFactory, cfg *config.Config) (analyzer.ImageAnalyzer, CloseFunc, error) {
	preferred := PreferredAnalyzer(cfg)
	a, closeFn, err := f.CreateAnalyzer(ctx, preferred)
	if err == nil || preferred == LocalAnalyzer {
		return a, closeFn, err
	}
	logger.WithError(err).WithField("analyzer", preferred).Warn("Falling back to local analyzer")
	return f.CreateAnalyzer(ctx, LocalAnalyzer)
}

type storageFactory struct {
	cfg    *config.Config
	client *http.Client
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config, client *http.Client) StorageFactory {
	return &storageFactory{cfg: cfg, client: client}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	httpFetcher := storage.NewHTTPImageFetcher(f.client)
	switch storageType {
	case HTTPStorage:
		return httpFetcher, nil
	case AzureStorage:
		if f.cfg.AzureAccountName == "" || f.cfg.AzureAccountKey == "" {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		blobs, err := storage.NewAzureStorage(f.cfg.AzureAccountName, f.cfg.AzureAccountKey)
		if err != nil {
			return nil, err
		}
		return storage.NewRoutingFetcher(httpFetcher, blobs), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// PreferredStorage is azure when an account is configured, otherwise http.
func PreferredStorage(cfg *config.Config) StorageType {
	if cfg.AzureAccountName != "" && cfg.AzureAccountKey != "" {
		return AzureStorage
	}
	return HTTPStorage
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config, client *http.Client) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg, client),
	}
}
