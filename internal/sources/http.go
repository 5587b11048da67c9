package sources

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/anime-shed/artwork-matcher/pkg/models"
)

const maxSourceResponseBytes = 8 << 20

// HTTPAdapterConfig configures a JSON search endpoint.
type HTTPAdapterConfig struct {
	ID       string
	Internal bool
	// URLTemplate may contain {query} and {limit}.
	URLTemplate string
	// ResultsPath is a dot separated path to the result array; empty means the body is the array.
	ResultsPath   string
	Headers       map[string]string
	Timeout       time.Duration
	RatePerSecond float64
}

// HTTPAdapter queries a remote JSON search API.
type HTTPAdapter struct {
	cfg     HTTPAdapterConfig
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPAdapter creates an adapter. A nil client uses http.DefaultClient; a
// zero RatePerSecond disables rate limiting.
func NewHTTPAdapter(cfg HTTPAdapterConfig, client *http.Client) *HTTPAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	a := &HTTPAdapter{cfg: cfg, client: client}
	if cfg.RatePerSecond > 0 {
		burst := int(cfg.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return a
}

func (a *HTTPAdapter) ID() string             { return a.cfg.ID }
func (a *HTTPAdapter) Internal() bool         { return a.cfg.Internal }
func (a *HTTPAdapter) Timeout() time.Duration { return a.cfg.Timeout }

// BuildURL expands the URL template for keywords and limit.
func (a *HTTPAdapter) BuildURL(keywords []string, limit int) string {
	query := url.QueryEscape(strings.Join(keywords, " "))
	r := strings.NewReplacer("{query}", query, "{limit}", strconv.Itoa(limit))
	return r.Replace(a.cfg.URLTemplate)
}

// Search fetches and decodes the result array.
func (a *HTTPAdapter) Search(ctx context.Context, keywords []string, limit int) ([]models.RawRecord, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BuildURL(keywords, limit), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid source URL: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Artwork-Matcher/1.0")
	for k, v := range a.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrSourceUnavailable, a.cfg.ID, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	records, err := decodeResults(body, a.cfg.ResultsPath)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", a.cfg.ID, err)
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// decodeResults walks path through nested objects and decodes the array found there.
// Non-object array items are skipped.
func decodeResults(body []byte, path string) ([]models.RawRecord, error) {
	raw := json.RawMessage(body)
	if path != "" {
		for _, part := range strings.Split(path, ".") {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(raw, &obj); err != nil {
				return nil, fmt.Errorf("expected object at %q: %w", part, err)
			}
			next, ok := obj[part]
			if !ok {
				return []models.RawRecord{}, nil
			}
			raw = next
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("expected result array: %w", err)
	}

	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		var rec map[string]any
		if err := json.Unmarshal(item, &rec); err != nil || rec == nil {
			continue
		}
		records = append(records, models.RawRecord(rec))
	}
	return records, nil
}
