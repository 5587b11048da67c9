package reachability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultProbeTimeout bounds one probe.
const DefaultProbeTimeout = 5 * time.Second

// ProbeResult is the observable outcome of probing a URL.
type ProbeResult struct {
	StatusCode  int
	ContentType string
}

// Valid reports a 2xx response with an image content type.
func (r ProbeResult) Valid() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300 &&
		strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.ContentType)), "image/")
}

// Prober checks whether a URL currently serves an image.
type Prober interface {
	Probe(ctx context.Context, url string) (ProbeResult, error)
}

// HTTPProber sends HEAD, retrying as a one byte ranged GET when the server
// does not allow HEAD.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProber creates a prober over client; a nil client uses http.DefaultClient.
func NewHTTPProber(client *http.Client, timeout time.Duration) *HTTPProber {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPProber{client: client, timeout: timeout}
}

func (p *HTTPProber) Probe(ctx context.Context, url string) (ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.do(ctx, http.MethodHead, url)
	if err != nil {
		return ProbeResult{}, err
	}
	if res.StatusCode == http.StatusMethodNotAllowed || res.StatusCode == http.StatusNotImplemented {
		return p.do(ctx, http.MethodGet, url)
	}
	return res, nil
}

func (p *HTTPProber) do(ctx context.Context, method, url string) (ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/*")
	req.Header.Set("User-Agent", "Artwork-Matcher/1.0")
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return ProbeResult{}, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	return ProbeResult{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
