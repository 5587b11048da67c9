package observer

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type recordingObserver struct {
	mu     sync.Mutex
	name   string
	stages []Stage
}

func (r *recordingObserver) OnEvent(ctx context.Context, event BatchEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, event.Stage)
}

func (r *recordingObserver) GetObserverName() string { return r.name }

type panickingObserver struct{}

func (panickingObserver) OnEvent(ctx context.Context, event BatchEvent) { panic("boom") }
func (panickingObserver) GetObserverName() string                       { return "panicker" }

func TestEventPublisher_DeliversInOrder(t *testing.T) {
	pub := NewEventPublisher()
	rec := &recordingObserver{name: "rec"}
	pub.Subscribe(panickingObserver{})
	pub.Subscribe(rec)

	ctx := context.Background()
	for _, s := range []Stage{StageReceived, StageGated, StageAnalyzing, StageComplete} {
		pub.NotifyObservers(ctx, BatchEvent{BatchID: "b1", Stage: s})
	}

	want := []Stage{StageReceived, StageGated, StageAnalyzing, StageComplete}
	if len(rec.stages) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(rec.stages))
	}
	for i := range want {
		if rec.stages[i] != want[i] {
			t.Errorf("Event %d: expected %s, got %s", i, want[i], rec.stages[i])
		}
	}
}

func TestEventPublisher_Unsubscribe(t *testing.T) {
	pub := NewEventPublisher()
	rec := &recordingObserver{name: "rec"}
	pub.Subscribe(rec)
	pub.Unsubscribe(rec)

	pub.NotifyObservers(context.Background(), BatchEvent{Stage: StageReceived})
	if len(rec.stages) != 0 {
		t.Errorf("Expected no events after unsubscribe, got %d", len(rec.stages))
	}
}

func TestMetricsObserver_Counts(t *testing.T) {
	obs := NewMetricsObserver()
	ctx := context.Background()

	obs.OnEvent(ctx, BatchEvent{Stage: StageReceived})
	obs.OnEvent(ctx, BatchEvent{Stage: StageComplete, Elapsed: 200 * time.Millisecond, ImageCount: 2})
	obs.OnEvent(ctx, BatchEvent{Stage: StageReceived})
	obs.OnEvent(ctx, BatchEvent{Stage: StageRejected})

	m := obs.GetMetrics()
	if m["total_batches"].(int64) != 2 {
		t.Errorf("Expected 2 total batches, got %v", m["total_batches"])
	}
	if m["completed_batches"].(int64) != 1 || m["rejected_batches"].(int64) != 1 {
		t.Errorf("Unexpected counts: %v", m)
	}
	if m["avg_processing_time_ms"].(int64) != 200 {
		t.Errorf("Expected avg 200ms, got %v", m["avg_processing_time_ms"])
	}
}

func TestLoggingObserver_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})

	NewLoggingObserver(l).OnEvent(context.Background(), BatchEvent{
		BatchID: "b42",
		Stage:   StageFailed,
		Error:   "payment storage unavailable",
	})

	out := buf.String()
	for _, want := range []string{`"batch_id":"b42"`, `"stage":"failed"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected log output to contain %s, got %s", want, out)
		}
	}
}
