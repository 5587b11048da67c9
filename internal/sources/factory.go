package sources

import (
	"fmt"
	"net/http"
	"time"

	"github.com/anime-shed/artwork-matcher/internal/config"
	"github.com/anime-shed/artwork-matcher/pkg/models"
)

// Factory builds adapters from the sources file.
type Factory struct {
	client         *http.Client
	defaultTimeout time.Duration
	breaker        BreakerSettings
}

// NewFactory creates a source factory. client is shared by every HTTP adapter.
func NewFactory(client *http.Client, defaultTimeout time.Duration, breaker BreakerSettings) *Factory {
	return &Factory{client: client, defaultTimeout: defaultTimeout, breaker: breaker}
}

// CreateAdapter creates one adapter based on the configured kind.
func (f *Factory) CreateAdapter(sc config.SourceConfig) (Adapter, error) {
	timeout := sc.Timeout
	if timeout <= 0 {
		timeout = f.defaultTimeout
	}

	switch sc.Kind {
	case config.SourceKindHTTP:
		a := NewHTTPAdapter(HTTPAdapterConfig{
			ID:            sc.ID,
			Internal:      sc.Internal,
			URLTemplate:   sc.URL,
			ResultsPath:   sc.ResultsPath,
			Headers:       sc.Headers,
			Timeout:       timeout,
			RatePerSecond: sc.RatePerSecond,
		}, f.client)
		return WithBreaker(a, f.breaker), nil
	case config.SourceKindStatic:
		records := make([]models.RawRecord, len(sc.Records))
		for i, r := range sc.Records {
			records[i] = models.RawRecord(r)
		}
		return NewStaticAdapter(sc.ID, sc.Internal, timeout, records), nil
	default:
		return nil, fmt.Errorf("unsupported source kind: %s", sc.Kind)
	}
}

// CreateAll builds the registry adapter (when entries exist) followed by
// every configured source, preserving file order.
func (f *Factory) CreateAll(sf *config.SourcesFile) ([]Adapter, error) {
	if sf == nil {
		return nil, nil
	}
	var adapters []Adapter
	if len(sf.Registry) > 0 {
		adapters = append(adapters, NewRegistryAdapter(sf.Registry))
	}
	for _, sc := range sf.Sources {
		a, err := f.CreateAdapter(sc)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", sc.ID, err)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}
