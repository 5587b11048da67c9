// Package aggregator collects candidate artworks from every source, removes
// excluded and duplicate entries, and ranks the rest by similarity.
package aggregator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/artwork-matcher/internal/config"
	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/internal/metrics"
	"github.com/anime-shed/artwork-matcher/internal/similarity"
	"github.com/anime-shed/artwork-matcher/internal/sources"
	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// DefaultSourceTimeout bounds a single source search when neither the
// adapter nor the aggregator configures one.
const DefaultSourceTimeout = 10 * time.Second

// Scope selects which adapters a query fans out to.
type Scope int

const (
	ScopeAll Scope = iota
	ScopeInternal
	ScopeExternal
)

func (s Scope) String() string {
	switch s {
	case ScopeInternal:
		return "internal"
	case ScopeExternal:
		return "external"
	default:
		return "all"
	}
}

// Query is one aggregation request.
type Query struct {
	Keywords   []string
	Confidence float64
	Limit      int
	Scope      Scope
}

// Aggregator fans a query out to source adapters.
type Aggregator struct {
	adapters   []sources.Adapter
	exclusions *ExclusionFilter
	timeout    time.Duration
}

// New creates an aggregator. A non-positive timeout uses DefaultSourceTimeout.
func New(adapters []sources.Adapter, exclusions []config.ExclusionConfig, timeout time.Duration) *Aggregator {
	if timeout <= 0 {
		timeout = DefaultSourceTimeout
	}
	return &Aggregator{
		adapters:   adapters,
		exclusions: NewExclusionFilter(exclusions),
		timeout:    timeout,
	}
}

// Adapters returns the adapters in the given scope, in configuration order.
func (a *Aggregator) Adapters(scope Scope) []sources.Adapter {
	var out []sources.Adapter
	for _, ad := range a.adapters {
		switch {
		case scope == ScopeInternal && !ad.Internal():
		case scope == ScopeExternal && ad.Internal():
		default:
			out = append(out, ad)
		}
	}
	return out
}

// Aggregate never fails: an erroring or slow source contributes nothing.
func (a *Aggregator) Aggregate(ctx context.Context, q Query) []models.CandidateArtwork {
	adapters := a.Adapters(q.Scope)
	if len(adapters) == 0 || q.Limit <= 0 {
		return []models.CandidateArtwork{}
	}

	results := make([][]models.RawRecord, len(adapters))
	var wg sync.WaitGroup
	for i, ad := range adapters {
		wg.Add(1)
		go func(i int, ad sources.Adapter) {
			defer wg.Done()
			results[i] = a.search(ctx, ad, q)
		}(i, ad)
	}
	wg.Wait()

	var candidates []models.CandidateArtwork
	for i, ad := range adapters {
		for j, rec := range results[i] {
			c := Normalize(rec, ad.ID(), ad.Internal(), j)
			if rule, excluded := a.exclusions.Match(c); excluded {
				metrics.CandidatesExcluded.WithLabelValues(rule).Inc()
				continue
			}
			candidates = append(candidates, c)
		}
	}

	candidates = Dedup(candidates)
	for i := range candidates {
		res := similarity.Score(q.Keywords, candidates[i].Keywords, q.Confidence)
		candidates[i].Similarity = &res
	}

	Rank(candidates)
	if len(candidates) > q.Limit {
		candidates = candidates[:q.Limit]
	}

	logger.WithFields(logrus.Fields{
		"scope":      q.Scope.String(),
		"sources":    len(adapters),
		"candidates": len(candidates),
	}).Debug("Aggregation complete")

	return candidates
}

func (a *Aggregator) search(ctx context.Context, ad sources.Adapter, q Query) []models.RawRecord {
	timeout := a.timeout
	if tp, ok := ad.(sources.TimeoutProvider); ok && tp.Timeout() > 0 {
		timeout = tp.Timeout()
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	records, err := ad.Search(sctx, q.Keywords, q.Limit)
	if err == nil && sctx.Err() != nil {
		err = sctx.Err()
	}
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			outcome = "timeout"
		case errors.Is(err, sources.ErrSourceUnavailable):
			outcome = "rejected"
		}
		metrics.SourceRequests.WithLabelValues(ad.ID(), outcome).Inc()
		logger.WithError(err).WithFields(logrus.Fields{
			"source":   ad.ID(),
			"outcome":  outcome,
			"duration": time.Since(start).String(),
		}).Warn("Source search failed")
		return nil
	}

	metrics.SourceRequests.WithLabelValues(ad.ID(), "success").Inc()
	metrics.SourceCandidates.WithLabelValues(ad.ID()).Add(float64(len(records)))
	return records
}

// Rank sorts by score descending; ties put internal candidates first and
// otherwise keep their existing order.
func Rank(candidates []models.CandidateArtwork) {
	sort.SliceStable(candidates, func(i, j int) bool {
		si, sj := candidates[i].Score(), candidates[j].Score()
		if si != sj {
			return si > sj
		}
		return candidates[i].Internal && !candidates[j].Internal
	})
}
