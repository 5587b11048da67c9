package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/anime-shed/artwork-matcher/internal/config"
	"github.com/anime-shed/artwork-matcher/pkg/models"
)

func TestHTTPAdapter_Search(t *testing.T) {
	var gotQuery, gotLimit, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("n")
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[{"objectID":1,"title":"A"},"junk",{"objectID":2,"title":"B"},{"objectID":3,"title":"C"}]}}`))
	}))
	defer server.Close()

	a := NewHTTPAdapter(HTTPAdapterConfig{
		ID:          "museum",
		URLTemplate: server.URL + "/search?q={query}&n={limit}",
		ResultsPath: "data.items",
		Headers:     map[string]string{"X-Api-Key": "secret"},
	}, server.Client())

	records, err := a.Search(context.Background(), []string{"blue", "sea"}, 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[1]["title"] != "B" {
		t.Errorf("Expected second record B, got %v", records[1]["title"])
	}
	if gotQuery != "blue sea" || gotLimit != "2" || gotKey != "secret" {
		t.Errorf("Unexpected request: q=%q n=%q key=%q", gotQuery, gotLimit, gotKey)
	}
}

func TestHTTPAdapter_TopLevelArrayAndMissingPath(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		path    string
		want    int
		wantErr bool
	}{
		{"array body", `[{"id":"1"},{"id":"2"}]`, "", 2, false},
		{"missing path", `{"other":[]}`, "results", 0, false},
		{"not an array", `{"results":{"id":"1"}}`, "results", 0, true},
		{"malformed", `{`, "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			a := NewHTTPAdapter(HTTPAdapterConfig{ID: "s", URLTemplate: server.URL, ResultsPath: tt.path}, server.Client())
			records, err := a.Search(context.Background(), nil, 10)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if len(records) != tt.want {
				t.Errorf("Expected %d records, got %d", tt.want, len(records))
			}
		})
	}
}

func TestHTTPAdapter_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := NewHTTPAdapter(HTTPAdapterConfig{ID: "down", URLTemplate: server.URL}, server.Client())
	_, err := a.Search(context.Background(), []string{"x"}, 5)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestStaticAdapter_Matching(t *testing.T) {
	records := []models.RawRecord{
		{"title": "Blue Harbor", "tags": []any{"sea", "boats"}},
		{"title": "Red Field", "tags": "poppies, summer"},
		{"title": "Night Sea"},
	}
	a := NewStaticAdapter("fixtures", false, 0, records)

	got, err := a.Search(context.Background(), []string{"SEA"}, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 || got[0]["title"] != "Blue Harbor" || got[1]["title"] != "Night Sea" {
		t.Errorf("Expected Blue Harbor and Night Sea, got %v", got)
	}

	got, _ = a.Search(context.Background(), nil, 2)
	if len(got) != 2 {
		t.Errorf("Expected limit of 2 with no keywords, got %d", len(got))
	}
}

func TestRegistryAdapter(t *testing.T) {
	a := NewRegistryAdapter([]config.RegistryEntry{
		{ID: "r1", Title: "Lighthouse", Artist: "Ana", ImageURL: "https://cdn.example.com/r1.jpg", Tags: []string{"coast"}},
		{ID: "r2", Title: "Orchard", Artist: "Ben", ImageURL: "https://cdn.example.com/r2.jpg", Tags: []string{"trees"}},
	})
	if !a.Internal() || a.ID() != RegistryID {
		t.Errorf("Expected internal registry adapter, got id=%s internal=%v", a.ID(), a.Internal())
	}

	got, _ := a.Search(context.Background(), []string{"coast"}, 10)
	if len(got) != 1 || got[0]["id"] != "r1" {
		t.Errorf("Expected r1, got %v", got)
	}
}

type failingAdapter struct {
	calls int
}

func (f *failingAdapter) ID() string     { return "flaky" }
func (f *failingAdapter) Internal() bool { return false }
func (f *failingAdapter) Search(ctx context.Context, keywords []string, limit int) ([]models.RawRecord, error) {
	f.calls++
	return nil, errors.New("boom")
}

func TestBreakerAdapter_OpensAfterFailures(t *testing.T) {
	inner := &failingAdapter{}
	b := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		if _, err := b.Search(context.Background(), nil, 1); err == nil {
			t.Fatal("Expected error from failing adapter")
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("Expected open breaker, got %s", b.State())
	}

	_, err := b.Search(context.Background(), nil, 1)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("Expected ErrSourceUnavailable from open breaker, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("Expected inner adapter not called while open, got %d calls", inner.calls)
	}
}

func TestFactory_CreateAll(t *testing.T) {
	sf := &config.SourcesFile{
		Sources: []config.SourceConfig{
			{ID: "met", Kind: config.SourceKindHTTP, URL: "https://example.com/search?q={query}"},
			{ID: "local", Kind: config.SourceKindStatic, Internal: true, Records: []map[string]any{{"title": "x"}}},
		},
		Registry: []config.RegistryEntry{{ID: "r1", Title: "T", ImageURL: "https://example.com/a.jpg"}},
	}

	f := NewFactory(http.DefaultClient, 3*time.Second, DefaultBreakerSettings())
	adapters, err := f.CreateAll(sf)
	if err != nil {
		t.Fatalf("CreateAll() error = %v", err)
	}
	if len(adapters) != 3 {
		t.Fatalf("Expected 3 adapters, got %d", len(adapters))
	}
	if adapters[0].ID() != RegistryID || adapters[1].ID() != "met" || adapters[2].ID() != "local" {
		t.Errorf("Unexpected adapter order: %s %s %s", adapters[0].ID(), adapters[1].ID(), adapters[2].ID())
	}
	if tp, ok := adapters[1].(TimeoutProvider); !ok || tp.Timeout() != 3*time.Second {
		t.Error("Expected http adapter to inherit the default timeout")
	}

	if _, err := f.CreateAdapter(config.SourceConfig{ID: "x", Kind: "ftp"}); err == nil {
		t.Error("Expected error for unsupported kind")
	}
}
