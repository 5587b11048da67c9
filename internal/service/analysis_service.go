package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/anime-shed/artwork-matcher/internal/access"
	"github.com/anime-shed/artwork-matcher/internal/aggregator"
	"github.com/anime-shed/artwork-matcher/internal/analyzer"
	apperrors "github.com/anime-shed/artwork-matcher/internal/errors"
	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/internal/metrics"
	"github.com/anime-shed/artwork-matcher/internal/observer"
	"github.com/anime-shed/artwork-matcher/internal/repository"
	"github.com/anime-shed/artwork-matcher/internal/signal"
	"github.com/anime-shed/artwork-matcher/pkg/models"
)

const (
	// MaxQueryKeywords is how many common keywords are sent to sources.
	MaxQueryKeywords = 10
	topMatchCount    = 3
)

// BatchRequest is one upload batch.
type BatchRequest struct {
	Images [][]byte
	// Identity is the caller's user id; empty for guests.
	Identity string
}

// AnalysisService runs a batch from access check to validated recommendations
type AnalysisService interface {
	AnalyzeBatch(ctx context.Context, req BatchRequest) (*models.BatchResponse, error)
}

// Options tunes batch processing
type Options struct {
	MaxImages       int
	Workers         int
	InternalLimit   int
	ExternalLimit   int
	AnalysisTimeout time.Duration
	MaxPixels       int
}

// DefaultOptions returns the service defaults
func DefaultOptions() Options {
	return Options{
		MaxImages:       access.MaxBatchImages,
		Workers:         4,
		InternalLimit:   10,
		ExternalLimit:   20,
		AnalysisTimeout: 20 * time.Second,
		MaxPixels:       analyzer.DefaultOptions().MaxPixels,
	}
}

// Dependencies are the collaborators of the analysis service. Audit may be nil.
type Dependencies struct {
	Gate       *access.Gate
	Analyzer   analyzer.ImageAnalyzer
	Extractor  *signal.Extractor
	Aggregator *aggregator.Aggregator
	Validator  CandidateFilter
	Audit      repository.AuditRepository
	Events     observer.Subject
}

// CandidateFilter drops candidates whose image cannot be loaded
type CandidateFilter interface {
	Filter(ctx context.Context, candidates []models.CandidateArtwork) []models.CandidateArtwork
}

type analysisService struct {
	deps Dependencies
	opts Options
	now  func() time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(deps Dependencies, opts Options) AnalysisService {
	d := DefaultOptions()
	if opts.MaxImages <= 0 {
		opts.MaxImages = d.MaxImages
	}
	if opts.Workers <= 0 {
		opts.Workers = d.Workers
	}
	if opts.AnalysisTimeout <= 0 {
		opts.AnalysisTimeout = d.AnalysisTimeout
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = d.MaxPixels
	}
	if deps.Extractor == nil {
		deps.Extractor = signal.NewExtractor(0)
	}
	if deps.Events == nil {
		deps.Events = observer.NewEventPublisher()
	}
	return &analysisService{deps: deps, opts: opts, now: time.Now}
}

// batch carries per-request state through the stages
type batch struct {
	id       string
	identity string
	started  time.Time
	count    int
	tier     string
}

func (s *analysisService) publish(ctx context.Context, b *batch, stage observer.Stage, errMsg string, meta map[string]interface{}) {
	s.deps.Events.NotifyObservers(ctx, observer.BatchEvent{
		BatchID:    b.id,
		Stage:      stage,
		Timestamp:  s.now(),
		ImageCount: b.count,
		Tier:       b.tier,
		Elapsed:    s.now().Sub(b.started),
		Error:      errMsg,
		Metadata:   meta,
	})
}

// AnalyzeBatch gates, analyzes and aggregates one batch. A denied batch is
// returned as a rejected response, not an error.
func (s *analysisService) AnalyzeBatch(ctx context.Context, req BatchRequest) (*models.BatchResponse, error) {
	b := &batch{
		id:       uuid.NewString(),
		identity: access.NormalizeIdentity(req.Identity),
		started:  s.now(),
		count:    len(req.Images),
	}
	s.publish(ctx, b, observer.StageReceived, "", nil)

	if b.count == 0 {
		err := apperrors.NewValidationError("no images supplied", nil)
		s.publish(ctx, b, observer.StageRejected, err.Message, nil)
		return nil, err
	}
	if b.count > s.opts.MaxImages {
		err := apperrors.NewValidationError(
			fmt.Sprintf("too many images: %d (maximum %d)", b.count, s.opts.MaxImages), nil)
		s.publish(ctx, b, observer.StageRejected, err.Message, nil)
		return nil, err
	}

	decision := s.deps.Gate.Check(ctx, b.identity, b.count)
	b.tier = decision.Tier.Name
	s.publish(ctx, b, observer.StageGated, "", map[string]interface{}{"can_analyze": decision.CanAnalyze})

	if decision.StorageFailure {
		err := apperrors.NewUnavailableError("payment records are unavailable", nil)
		s.publish(ctx, b, observer.StageFailed, decision.Error, nil)
		return nil, err
	}
	if !decision.CanAnalyze {
		s.publish(ctx, b, observer.StageRejected, decision.Error, nil)
		return &models.BatchResponse{
			Status: models.BatchRejected,
			Rejection: &models.RejectedResponse{
				PaymentRequired: decision.PaymentRequired,
				LoginRequired:   decision.LoginRequired,
				Tier:            decision.Tier,
				ImageCount:      b.count,
				Message:         decision.Error,
			},
		}, nil
	}

	s.publish(ctx, b, observer.StageAnalyzing, "", nil)
	reports := s.analyzeAll(ctx, b, req.Images)
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, b, err)
	}

	tagSets := make([]models.ImageTagSet, len(reports))
	for i, r := range reports {
		tagSets[i] = r.Tags
	}

	var common *models.CommonSignal
	if b.count >= 2 {
		cs := s.deps.Extractor.Extract(tagSets)
		common = &cs
	}
	query, confidence := BuildQuery(tagSets, common)

	s.publish(ctx, b, observer.StageAggregating, "", map[string]interface{}{"query": query})
	internal, external, err := s.aggregate(ctx, query, confidence)
	if err != nil {
		return nil, s.fail(ctx, b, err)
	}

	s.publish(ctx, b, observer.StageValidating, "", map[string]interface{}{
		"internal_candidates": len(internal),
		"external_candidates": len(external),
	})
	internal, external, err = s.validate(ctx, internal, external)
	if err != nil {
		return nil, s.fail(ctx, b, err)
	}

	completedAt := s.now()
	result := &models.AnalysisResult{
		ID:                 b.id,
		ImageCount:         b.count,
		Tier:               b.tier,
		Images:             reports,
		CommonSignal:       common,
		Query:              query,
		InternalCandidates: internal,
		ExternalCandidates: external,
		Stats:              ComputeStats(internal, external),
		ProcessingTimeMs:   completedAt.Sub(b.started).Milliseconds(),
		CompletedAt:        completedAt,
	}

	s.recordAudit(ctx, b, result)
	s.publish(ctx, b, observer.StageComplete, "", nil)

	return &models.BatchResponse{Status: models.BatchComplete, Result: result}, nil
}

func (s *analysisService) fail(ctx context.Context, b *batch, err error) error {
	s.publish(ctx, b, observer.StageFailed, err.Error(), nil)
	if ctx.Err() != nil {
		return apperrors.NewTimeoutError("batch analysis cancelled", err)
	}
	return apperrors.NewInternalError("batch analysis failed", err)
}

// analyzeAll runs the analyzer over every image on a bounded pool. Results keep
// their image index; a failed image gets a zero tag set.
func (s *analysisService) analyzeAll(ctx context.Context, b *batch, images [][]byte) []models.ImageReport {
	reports := make([]models.ImageReport, len(images))

	pool := analyzer.NewWorkerPool(min(s.opts.Workers, len(images)))
	pool.Start()
	for i, data := range images {
		pool.Submit(func() {
			reports[i] = s.analyzeOne(ctx, b, i, data)
		})
	}
	pool.Wait()
	pool.Close()

	stats := pool.GetStats()
	logger.WithFields(logrus.Fields{
		"batch_id":  b.id,
		"workers":   stats.Workers,
		"completed": stats.CompletedJobs,
	}).Debug("Image analysis finished")

	for i, dup := range analyzer.FindDuplicates(images, s.opts.MaxPixels) {
		reports[i].DuplicateOf = dup
	}
	return reports
}

func (s *analysisService) analyzeOne(ctx context.Context, b *batch, index int, data []byte) (report models.ImageReport) {
	imgCtx, cancel := context.WithTimeout(ctx, s.opts.AnalysisTimeout)
	defer cancel()

	// Analyzer panics become a failed image.
	defer func() {
		if r := recover(); r != nil {
			report = s.failedImage(b, index, fmt.Errorf("analyzer panic: %v", r))
		}
	}()

	tags, err := s.deps.Analyzer.AnalyzeImage(imgCtx, data)
	if err != nil {
		return s.failedImage(b, index, err)
	}
	if tags.Keywords == nil {
		tags.Keywords = []string{}
	}
	if tags.Colors == nil {
		tags.Colors = []string{}
	}
	return models.ImageReport{Index: index, Tags: tags}
}

func (s *analysisService) failedImage(b *batch, index int, err error) models.ImageReport {
	metrics.ImageAnalysisFailures.Inc()
	logger.WithError(err).WithFields(logrus.Fields{
		"batch_id": b.id,
		"index":    index,
	}).Warn("Image analysis failed, continuing with empty tags")
	return models.ImageReport{Index: index, Tags: emptyTags(), Failed: true}
}

func emptyTags() models.ImageTagSet {
	return models.ImageTagSet{Keywords: []string{}, Colors: []string{}}
}

// BuildQuery picks the keywords sent to sources and the confidence used for
// scoring. The common keywords are used when there are any; otherwise the most
// frequent tokens across all images stand in.
func BuildQuery(tagSets []models.ImageTagSet, common *models.CommonSignal) ([]string, float64) {
	if common != nil && len(common.Keywords) > 0 {
		return head(common.Keywords, MaxQueryKeywords), common.Confidence
	}

	query := []string{}
	for _, tc := range signal.Ranked(tagSets) {
		if len(query) == MaxQueryKeywords {
			break
		}
		if len([]rune(tc.Token)) > 1 {
			query = append(query, tc.Token)
		}
	}

	if common != nil {
		return query, common.Confidence
	}
	if len(tagSets) == 1 {
		return query, tagSets[0].Confidence
	}
	return query, 0
}

func head(s []string, n int) []string {
	if len(s) > n {
		s = s[:n]
	}
	return append([]string(nil), s...)
}

func (s *analysisService) aggregate(ctx context.Context, query []string, confidence float64) (internal, external []models.CandidateArtwork, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		internal = s.deps.Aggregator.Aggregate(gctx, aggregator.Query{
			Keywords:   query,
			Confidence: confidence,
			Limit:      s.opts.InternalLimit,
			Scope:      aggregator.ScopeInternal,
		})
		return gctx.Err()
	})
	g.Go(func() error {
		external = s.deps.Aggregator.Aggregate(gctx, aggregator.Query{
			Keywords:   query,
			Confidence: confidence,
			Limit:      s.opts.ExternalLimit,
			Scope:      aggregator.ScopeExternal,
		})
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return internal, external, nil
}

func (s *analysisService) validate(ctx context.Context, internal, external []models.CandidateArtwork) ([]models.CandidateArtwork, []models.CandidateArtwork, error) {
	if s.deps.Validator == nil {
		return internal, external, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		internal = s.deps.Validator.Filter(gctx, internal)
		return gctx.Err()
	})
	g.Go(func() error {
		external = s.deps.Validator.Filter(gctx, external)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return nonNil(internal), nonNil(external), nil
}

func nonNil(c []models.CandidateArtwork) []models.CandidateArtwork {
	if c == nil {
		return []models.CandidateArtwork{}
	}
	return c
}

// ComputeStats averages the score over every validated candidate and lists the top three.
func ComputeStats(internal, external []models.CandidateArtwork) models.SimilarityStats {
	all := make([]models.CandidateArtwork, 0, len(internal)+len(external))
	all = append(all, internal...)
	all = append(all, external...)

	stats := models.SimilarityStats{TopMatches: []models.TopMatch{}}
	if len(all) == 0 {
		return stats
	}

	total := 0.0
	for _, c := range all {
		total += c.Score()
	}
	stats.AverageScore = total / float64(len(all))

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score() > all[j].Score()
	})
	for _, c := range all[:min(topMatchCount, len(all))] {
		matched := []string{}
		if c.Similarity != nil {
			matched = c.Similarity.MatchedKeywords
		}
		stats.TopMatches = append(stats.TopMatches, models.TopMatch{
			Title:           c.Title,
			Score:           c.Score(),
			MatchedKeywords: matched,
		})
	}
	return stats
}

func (s *analysisService) recordAudit(ctx context.Context, b *batch, result *models.AnalysisResult) {
	if s.deps.Audit == nil {
		return
	}
	entry := repository.AuditEntry{
		BatchID:    b.id,
		Identity:   b.identity,
		Tier:       b.tier,
		ImageCount: b.count,
		CreatedAt:  result.CompletedAt,
	}
	if result.CommonSignal != nil {
		entry.CommonKeywords = result.CommonSignal.Keywords
		entry.Confidence = result.CommonSignal.Confidence
	}
	if err := s.deps.Audit.Append(ctx, entry); err != nil {
		logger.WithError(err).WithField("batch_id", b.id).Warn("Failed to append audit entry")
	}
}
