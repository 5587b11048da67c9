package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/artwork-matcher/internal/logger"
)

// DefaultMaxImageBytes caps a single fetched upload.
const DefaultMaxImageBytes = 20 << 20

// ErrImageTooLarge is returned when a body exceeds the fetcher's byte limit.
var ErrImageTooLarge = errors.New("image exceeds size limit")

// ImageFetcher loads the raw bytes of an image referenced by URL.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// NewTransport returns the pooled transport shared by outbound clients.
func NewTransport() *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 16 << 10,
	}
}

// NewHTTPClient builds a client on NewTransport that follows at most 3 redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: NewTransport(),
		Timeout:   timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("too many redirects (limit: 3)")
			}
			return nil
		},
	}
}

// HTTPImageFetcher implements ImageFetcher over HTTP with retry on transient failures
type HTTPImageFetcher struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
	maxBytes int64
}

// NewHTTPImageFetcher creates an HTTP image fetcher with 3 attempts and linear backoff.
func NewHTTPImageFetcher(client *http.Client) *HTTPImageFetcher {
	if client == nil {
		client = NewHTTPClient(30 * time.Second)
	}
	return &HTTPImageFetcher{
		client:   client,
		attempts: 3,
		backoff:  time.Second,
		maxBytes: DefaultMaxImageBytes,
	}
}

// WithBackoff sets the base delay between attempts
func (h *HTTPImageFetcher) WithBackoff(d time.Duration) *HTTPImageFetcher {
	h.backoff = d
	return h
}

// WithMaxBytes sets the body size limit
func (h *HTTPImageFetcher) WithMaxBytes(n int64) *HTTPImageFetcher {
	h.maxBytes = n
	return h
}

// FetchImage downloads imageURL. 4xx responses are not retried; 5xx and
// network errors are, with attempt*backoff delay between tries.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		data, retry, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}

		logger.WithFields(logrus.Fields{
			"url":     imageURL,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Debug("Image fetch failed, retrying")
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.attempts, lastErr)
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Artwork-Matcher/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, false, ErrImageTooLarge
	}
	return data, false, nil
}
