// Package reachability filters candidates down to those whose image URL
// currently serves an image.
package reachability

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/internal/metrics"
	"github.com/anime-shed/artwork-matcher/pkg/models"
	"github.com/anime-shed/artwork-matcher/pkg/validation"
)

// DefaultBatchSize is the number of probes in flight at once.
const DefaultBatchSize = 10

// Validator checks candidate image URLs through a cache and a prober.
type Validator struct {
	prober    Prober
	cache     Cache
	urls      *validation.URLValidator
	batchSize int
}

// NewValidator creates a validator. A nil cache uses a MemoryCache with the default TTL.
func NewValidator(prober Prober, cache Cache, batchSize int) *Validator {
	if cache == nil {
		cache = NewMemoryCache(DefaultCacheTTL)
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Validator{
		prober:    prober,
		cache:     cache,
		urls:      validation.NewURLValidator(),
		batchSize: batchSize,
	}
}

// Check reports whether url is a well-formed http(s) URL serving an image.
// Probe errors count as unreachable.
func (v *Validator) Check(ctx context.Context, url string) bool {
	if err := v.urls.ValidateImageURL(url); err != nil {
		metrics.ProbeResults.WithLabelValues("malformed").Inc()
		return false
	}

	if valid, ok := v.cache.Get(url); ok {
		return valid
	}

	res, err := v.prober.Probe(ctx, url)
	if err != nil {
		metrics.ProbeResults.WithLabelValues("error").Inc()
		logger.WithError(err).WithField("url", url).Debug("Image probe failed")
		// A cancelled batch says nothing about the URL.
		if ctx.Err() == nil {
			v.cache.Put(url, false)
		}
		return false
	}

	valid := res.Valid()
	if valid {
		metrics.ProbeResults.WithLabelValues("valid").Inc()
	} else {
		metrics.ProbeResults.WithLabelValues("invalid").Inc()
	}
	v.cache.Put(url, valid)
	return valid
}

// Filter returns the candidates whose best image URL is reachable, in
// input order. Probes run in fixed-size batches.
func (v *Validator) Filter(ctx context.Context, candidates []models.CandidateArtwork) []models.CandidateArtwork {
	keep := make([]bool, len(candidates))

	for start := 0; start < len(candidates); start += v.batchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+v.batchSize, len(candidates))

		var g errgroup.Group
		for i := start; i < end; i++ {
			url := candidates[i].BestImageURL()
			if url == "" {
				continue
			}
			g.Go(func() error {
				keep[i] = v.Check(ctx, url)
				return nil
			})
		}
		g.Wait()
	}

	out := make([]models.CandidateArtwork, 0, len(candidates))
	for i, c := range candidates {
		if keep[i] {
			out = append(out, c)
		}
	}

	if dropped := len(candidates) - len(out); dropped > 0 {
		logger.WithFields(logrus.Fields{
			"checked": len(candidates),
			"dropped": dropped,
		}).Debug("Unreachable candidates removed")
	}
	return out
}
