package transport

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/anime-shed/artwork-matcher/internal/access"
	"github.com/anime-shed/artwork-matcher/internal/config"
	apperrors "github.com/anime-shed/artwork-matcher/internal/errors"
	"github.com/anime-shed/artwork-matcher/internal/observer"
	"github.com/anime-shed/artwork-matcher/internal/service"
	"github.com/anime-shed/artwork-matcher/pkg/models"
	"github.com/anime-shed/artwork-matcher/pkg/validation"
)

type fakeService struct {
	mu       sync.Mutex
	requests []service.BatchRequest
	resp     *models.BatchResponse
	err      error
}

func (f *fakeService) AnalyzeBatch(ctx context.Context, req service.BatchRequest) (*models.BatchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

type fakeFetcher struct {
	data map[string][]byte
}

func (f *fakeFetcher) FetchImage(ctx context.Context, u string) ([]byte, error) {
	d, ok := f.data[u]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return d, nil
}

func testConfig() *config.Config {
	return &config.Config{
		MaxRequestBodySize: 1 << 20,
		RequestTimeout:     5 * time.Second,
		ImageFetchTimeout:  5 * time.Second,
		MaxImages:          access.MaxBatchImages,
	}
}

func newTestHandler(svc service.AnalysisService, fetcher *fakeFetcher) http.Handler {
	gin.SetMode(gin.TestMode)
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	return NewHandler(Handlers{
		Service:      svc,
		Fetcher:      fetcher,
		URLValidator: validation.NewUploadURLValidator(),
		Metrics:      observer.NewMetricsObserver(),
		Config:       testConfig(),
	})
}

func completeResponse() *models.BatchResponse {
	return &models.BatchResponse{
		Status: models.BatchComplete,
		Result: &models.AnalysisResult{ID: "batch-1", ImageCount: 2},
	}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := w.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write([]byte(content))
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestAnalyze_MultipartUpload(t *testing.T) {
	svc := &fakeService{resp: completeResponse()}
	h := newTestHandler(svc, nil)

	body, contentType := multipartBody(t, map[string]string{"a.png": "AAA", "b.png": "BBB"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(IdentityHeader, "  alice ")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.requests) != 1 {
		t.Fatalf("Expected 1 service call, got %d", len(svc.requests))
	}
	got := svc.requests[0]
	if got.Identity != "alice" {
		t.Errorf("Expected identity alice, got %q", got.Identity)
	}
	if len(got.Images) != 2 {
		t.Errorf("Expected 2 images, got %d", len(got.Images))
	}

	var resp models.BatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Result == nil || resp.Result.ID != "batch-1" {
		t.Errorf("Expected result batch-1, got %+v", resp.Result)
	}
}

func TestAnalyze_ImageURLsFetchedInOrder(t *testing.T) {
	svc := &fakeService{resp: completeResponse()}
	fetcher := &fakeFetcher{data: map[string][]byte{
		"https://img.example.com/1.png": []byte("one"),
		"https://img.example.com/2.png": []byte("two"),
		"https://img.example.com/3.png": []byte("three"),
	}}
	h := newTestHandler(svc, fetcher)

	payload := `{"image_urls":["https://img.example.com/3.png","https://img.example.com/1.png","https://img.example.com/2.png"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	images := svc.requests[0].Images
	expected := []string{"three", "one", "two"}
	for i, want := range expected {
		if string(images[i]) != want {
			t.Errorf("Image %d: expected %s, got %s", i, want, images[i])
		}
	}
}

func TestAnalyze_RequestErrors(t *testing.T) {
	tests := []struct {
		name           string
		payload        string
		expectedStatus int
		expectedType   string
	}{
		{"malformed json", `{"image_urls":`, http.StatusBadRequest, "validation"},
		{"empty list", `{"image_urls":[]}`, http.StatusBadRequest, "validation"},
		{"bad scheme", `{"image_urls":["ftp://img.example.com/a.png"]}`, http.StatusBadRequest, "validation"},
		{"private host", `{"image_urls":["http://127.0.0.1/a.png"]}`, http.StatusBadRequest, "validation"},
		{"unreachable", `{"image_urls":["https://img.example.com/missing.png"]}`, http.StatusBadGateway, "network"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{resp: completeResponse()}
			h := newTestHandler(svc, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("Failed to decode error: %v", err)
			}
			if resp.Type != tt.expectedType {
				t.Errorf("Expected error type %s, got %s", tt.expectedType, resp.Type)
			}
			if len(svc.requests) != 0 {
				t.Error("Expected service not to be called")
			}
		})
	}
}

func TestAnalyze_RejectionStatus(t *testing.T) {
	tests := []struct {
		name           string
		loginRequired  bool
		expectedStatus int
	}{
		{"payment required", false, http.StatusPaymentRequired},
		{"login required", true, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{resp: &models.BatchResponse{
				Status: models.BatchRejected,
				Rejection: &models.RejectedResponse{
					PaymentRequired: true,
					LoginRequired:   tt.loginRequired,
					Tier:            access.TierFor(11),
					ImageCount:      11,
				},
			}}
			h := newTestHandler(svc, nil)

			body, contentType := multipartBody(t, map[string]string{"a.png": "A"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if !strings.Contains(w.Body.String(), access.TierPremium) {
				t.Errorf("Expected tier metadata in body, got %s", w.Body.String())
			}
		})
	}
}

func TestAnalyze_ServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"validation", apperrors.NewValidationError("no images supplied", nil), http.StatusBadRequest},
		{"unavailable", apperrors.NewUnavailableError("payment records are unavailable", nil), http.StatusServiceUnavailable},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeService{err: tt.err}, nil)

			body, contentType := multipartBody(t, map[string]string{"a.png": "A"})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	h := newTestHandler(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "available" {
		t.Errorf("Expected status available, got %v", body["status"])
	}
	if _, ok := body["batches"]; !ok {
		t.Error("Expected batch metrics in health response")
	}
}

func TestListTiers(t *testing.T) {
	h := newTestHandler(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tiers", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body struct {
		Tiers     []models.Tier `json:"tiers"`
		MaxImages int           `json:"max_images"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if len(body.Tiers) != 3 || body.MaxImages != access.MaxBatchImages {
		t.Errorf("Expected 3 tiers and max %d, got %+v", access.MaxBatchImages, body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(&fakeService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("Expected Go runtime metrics in /metrics output")
	}
}
