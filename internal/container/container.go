package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dgraph-io/badger/v4"

	"github.com/anime-shed/artwork-matcher/internal/access"
	"github.com/anime-shed/artwork-matcher/internal/aggregator"
	"github.com/anime-shed/artwork-matcher/internal/analyzer"
	"github.com/anime-shed/artwork-matcher/internal/config"
	"github.com/anime-shed/artwork-matcher/internal/factory"
	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/internal/observer"
	"github.com/anime-shed/artwork-matcher/internal/reachability"
	"github.com/anime-shed/artwork-matcher/internal/repository"
	"github.com/anime-shed/artwork-matcher/internal/service"
	"github.com/anime-shed/artwork-matcher/internal/signal"
	"github.com/anime-shed/artwork-matcher/internal/sources"
	"github.com/anime-shed/artwork-matcher/internal/storage"
	"github.com/anime-shed/artwork-matcher/internal/transport"
	"github.com/anime-shed/artwork-matcher/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	db              *badger.DB
	payments        repository.PaymentRepository
	audit           repository.AuditRepository
	imageFetcher    storage.ImageFetcher
	imageAnalyzer   analyzer.ImageAnalyzer
	analysisService service.AnalysisService
	validationCache *reachability.MemoryCache
	metrics         *observer.MetricsObserver
	handler         http.Handler
	closers         []factory.CloseFunc
}

// NewContainer builds the dependency graph for cfg.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	db, err := repository.OpenBadger(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open data store: %w", err)
	}
	c := &Container{
		config:   cfg,
		db:       db,
		payments: repository.NewBadgerPaymentRepository(db),
		audit:    repository.NewBadgerAuditRepository(db),
		closers:  []factory.CloseFunc{db.Close},
	}

	components := factory.NewComponentFactory(cfg, storage.NewHTTPClient(cfg.ImageFetchTimeout))

	imageAnalyzer, closeAnalyzer, err := factory.CreatePreferred(ctx, components.AnalyzerFactory, cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	c.imageAnalyzer = imageAnalyzer
	c.closers = append(c.closers, closeAnalyzer)

	c.imageFetcher, err = components.StorageFactory.CreateStorage(factory.PreferredStorage(cfg))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create image storage: %w", err)
	}

	sourceFactory := sources.NewFactory(storage.NewHTTPClient(cfg.SourceTimeout), cfg.SourceTimeout, sources.DefaultBreakerSettings())
	adapters, err := sourceFactory.CreateAll(cfg.Sources)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create sources: %w", err)
	}

	c.validationCache = reachability.NewMemoryCache(cfg.ValidationCacheTTL)
	prober := reachability.NewHTTPProber(storage.NewHTTPClient(cfg.ProbeTimeout), cfg.ProbeTimeout)

	c.metrics = observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(c.metrics)

	c.analysisService = service.NewAnalysisService(service.Dependencies{
		Gate:       access.NewGate(c.payments, cfg.PaymentWindow),
		Analyzer:   c.imageAnalyzer,
		Extractor:  signal.NewExtractor(cfg.KeywordsPerImage),
		Aggregator: aggregator.New(adapters, cfg.Sources.Exclusions, cfg.SourceTimeout),
		Validator:  reachability.NewValidator(prober, c.validationCache, cfg.ValidationBatchSize),
		Audit:      c.audit,
		Events:     events,
	}, service.Options{
		MaxImages:       cfg.MaxImages,
		Workers:         cfg.AnalysisWorkers,
		InternalLimit:   cfg.InternalLimit,
		ExternalLimit:   cfg.ExternalLimit,
		AnalysisTimeout: cfg.AnalysisTimeout,
	})

	c.handler = transport.NewHandler(transport.Handlers{
		Service:      c.analysisService,
		Fetcher:      c.imageFetcher,
		URLValidator: validation.NewUploadURLValidator(),
		Metrics:      c.metrics,
		Config:       cfg,
	})

	logger.WithField("sources", len(adapters)).Info("Container initialized")
	return c, nil
}

// StartBackground runs the validation cache sweeper until ctx is done.
func (c *Container) StartBackground(ctx context.Context) {
	reachability.StartSweeper(ctx, c.validationCache, c.config.ValidationSweep)
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the batch analysis service
func (c *Container) Service() service.AnalysisService {
	return c.analysisService
}

// Payments returns the payment repository
func (c *Container) Payments() repository.PaymentRepository {
	return c.payments
}

// Audit returns the batch audit log
func (c *Container) Audit() repository.AuditRepository {
	return c.audit
}

// Close releases resources in reverse creation order.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
