package sources

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/anime-shed/artwork-matcher/internal/logger"
	"github.com/anime-shed/artwork-matcher/internal/metrics"
	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// BreakerSettings tunes the per-source circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before a half-open probe
	OpenTimeout time.Duration
}

// DefaultBreakerSettings opens after 5 straight failures for 30 seconds.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second}
}

// BreakerAdapter wraps an Adapter with a circuit breaker.
type BreakerAdapter struct {
	Adapter
	cb *gobreaker.CircuitBreaker[[]models.RawRecord]
}

// WithBreaker wraps next. Caller cancellation does not count as a source failure.
func WithBreaker(next Adapter, s BreakerSettings) *BreakerAdapter {
	name := next.ID()
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]models.RawRecord](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"source": name,
				"from":   from.String(),
				"to":     to.String(),
			}).Warn("Source circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &BreakerAdapter{Adapter: next, cb: cb}
}

// Timeout forwards the wrapped adapter's timeout, if any.
func (b *BreakerAdapter) Timeout() time.Duration {
	if tp, ok := b.Adapter.(TimeoutProvider); ok {
		return tp.Timeout()
	}
	return 0
}

// State reports the breaker state.
func (b *BreakerAdapter) State() gobreaker.State {
	return b.cb.State()
}

// Search runs the wrapped search through the breaker. An open breaker
// returns ErrSourceUnavailable without calling the source.
func (b *BreakerAdapter) Search(ctx context.Context, keywords []string, limit int) ([]models.RawRecord, error) {
	records, err := b.cb.Execute(func() ([]models.RawRecord, error) {
		return b.Adapter.Search(ctx, keywords, limit)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrSourceUnavailable, err)
	}
	return records, err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
