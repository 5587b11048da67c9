package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/artwork-matcher/internal/metrics"
)

// Stage is a state in the batch lifecycle
type Stage string

const (
	StageReceived    Stage = "received"
	StageGated       Stage = "gated"
	StageAnalyzing   Stage = "analyzing"
	StageAggregating Stage = "aggregating"
	StageValidating  Stage = "validating"
	StageComplete    Stage = "complete"
	StageRejected    Stage = "rejected"
	StageFailed      Stage = "failed"
)

// Terminal reports whether no further transitions follow.
func (s Stage) Terminal() bool {
	return s == StageComplete || s == StageRejected || s == StageFailed
}

// BatchEvent represents one batch state transition
type BatchEvent struct {
	BatchID    string                 `json:"batch_id"`
	Stage      Stage                  `json:"stage"`
	Timestamp  time.Time              `json:"timestamp"`
	ImageCount int                    `json:"image_count"`
	Tier       string                 `json:"tier,omitempty"`
	Elapsed    time.Duration          `json:"elapsed"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event BatchEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event BatchEvent)
}

// LoggingObserver logs batch events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles batch events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event BatchEvent) {
	fields := logrus.Fields{
		"batch_id":    event.BatchID,
		"stage":       event.Stage,
		"image_count": event.ImageCount,
		"elapsed_ms":  event.Elapsed.Milliseconds(),
	}
	if event.Tier != "" {
		fields["tier"] = event.Tier
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.Stage {
	case StageComplete:
		o.logger.WithFields(fields).Info("Batch analysis completed")
	case StageRejected:
		o.logger.WithFields(fields).Warn("Batch rejected")
	case StageFailed:
		o.logger.WithFields(fields).Error("Batch analysis failed")
	case StageReceived:
		o.logger.WithFields(fields).Info("Batch received")
	default:
		o.logger.WithFields(fields).Debug("Batch stage changed")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver exports batch events to Prometheus and keeps running totals
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalBatches        int64
	completedBatches    int64
	rejectedBatches     int64
	failedBatches       int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles batch events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event BatchEvent) {
	metrics.BatchStageTransitions.WithLabelValues(string(event.Stage)).Inc()
	if event.Stage.Terminal() {
		metrics.BatchesTotal.WithLabelValues(string(event.Stage)).Inc()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.Stage {
	case StageReceived:
		o.totalBatches++
	case StageComplete:
		o.completedBatches++
		o.totalProcessingTime += event.Elapsed
		metrics.BatchDuration.Observe(event.Elapsed.Seconds())
		metrics.BatchImages.Observe(float64(event.ImageCount))
	case StageRejected:
		o.rejectedBatches++
	case StageFailed:
		o.failedBatches++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.completedBatches > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.completedBatches)
	}

	return map[string]interface{}{
		"total_batches":          o.totalBatches,
		"completed_batches":      o.completedBatches,
		"rejected_batches":       o.rejectedBatches,
		"failed_batches":         o.failedBatches,
		"avg_processing_time_ms": avgProcessingTime.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer in subscription order, so
// a batch's transitions are observed in the order they happened.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event BatchEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, obs := range observers {
		notify(ctx, obs, event)
	}
}

func notify(ctx context.Context, obs Observer, event BatchEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
