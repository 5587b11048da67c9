package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SOURCES_FILE", "")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.ServerAddress() != "0.0.0.0:8080" {
		t.Errorf("Expected default address, got %s", cfg.ServerAddress())
	}
	if cfg.MaxImages != 50 {
		t.Errorf("Expected MaxImages 50, got %d", cfg.MaxImages)
	}
	if cfg.ProbeTimeout != 5*time.Second {
		t.Errorf("Expected probe timeout 5s, got %s", cfg.ProbeTimeout)
	}
	if cfg.ValidationCacheTTL != 5*time.Minute {
		t.Errorf("Expected cache TTL 5m, got %s", cfg.ValidationCacheTTL)
	}
	if cfg.ValidationBatchSize != 10 {
		t.Errorf("Expected batch size 10, got %d", cfg.ValidationBatchSize)
	}
	if cfg.PaymentWindow != 24*time.Hour {
		t.Errorf("Expected payment window 24h, got %s", cfg.PaymentWindow)
	}
	if cfg.Sources == nil || len(cfg.Sources.Exclusions) == 0 {
		t.Error("Expected default exclusions to be loaded")
	}
}

func TestLoadFromEnv_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "99999")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error for out of range port")
	}
}

func TestLoadFromEnv_InvalidBatchSize(t *testing.T) {
	t.Setenv("VALIDATION_BATCH_SIZE", "0")

	if _, err := LoadFromEnv(); err == nil {
		t.Error("Expected error for zero validation batch size")
	}
}

func writeSources(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write sources file: %v", err)
	}
	return path
}

func TestLoadSourcesFile_Valid(t *testing.T) {
	path := writeSources(t, `
sources:
  - id: museum:chicago
    kind: http
    url: https://api.example.org/search?q={query}&limit={limit}
    results_path: data
    timeout: 8s
    rate_per_second: 2
  - id: legacy
    kind: static
    internal: true
    records:
      - title: Water Lilies
        image_url: https://img.example.org/lilies.jpg
registry:
  - id: reg-1
    title: Harbor at Dusk
    artist: A. Painter
    image_url: https://cdn.example.org/harbor.jpg
    tags: [harbor, blue]
exclusions:
  - name: behance
    fields: [platform, source_url]
    patterns: [behance]
`)

	sf, err := LoadSourcesFile(path)
	if err != nil {
		t.Fatalf("Expected valid sources file, got %v", err)
	}
	if len(sf.Sources) != 2 {
		t.Fatalf("Expected 2 sources, got %d", len(sf.Sources))
	}
	if sf.Sources[0].Timeout != 8*time.Second {
		t.Errorf("Expected timeout 8s, got %s", sf.Sources[0].Timeout)
	}
	if !sf.Sources[1].Internal || len(sf.Sources[1].Records) != 1 {
		t.Error("Expected internal static source with one record")
	}
	if len(sf.Registry) != 1 || sf.Registry[0].Tags[1] != "blue" {
		t.Error("Expected registry entry with tags")
	}
	if len(sf.Exclusions) != 1 || sf.Exclusions[0].Name != "behance" {
		t.Error("Expected configured exclusions to replace the defaults")
	}
}

func TestLoadSourcesFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "http source without url",
			body: "sources:\n  - id: a\n    kind: http\n",
			want: "invalid sources file",
		},
		{
			name: "unknown kind",
			body: "sources:\n  - id: a\n    kind: ftp\n    url: x\n",
			want: "invalid sources file",
		},
		{
			name: "duplicate ids",
			body: "sources:\n  - id: a\n    kind: http\n    url: http://a\n  - id: a\n    kind: http\n    url: http://b\n",
			want: "duplicate source id",
		},
		{
			name: "exclusion without patterns",
			body: "exclusions:\n  - name: empty\n",
			want: "invalid sources file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSourcesFile(writeSources(t, tt.body))
			if err == nil {
				t.Fatal("Expected error, got none")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadSourcesFile_Example(t *testing.T) {
	sf, err := LoadSourcesFile(filepath.Join("..", "..", "configs", "sources.example.yaml"))
	if err != nil {
		t.Fatalf("Expected example file to load, got %v", err)
	}
	if len(sf.Sources) != 2 || len(sf.Registry) != 1 || len(sf.Exclusions) != 2 {
		t.Errorf("Expected 2 sources, 1 registry entry, 2 exclusions, got %d/%d/%d",
			len(sf.Sources), len(sf.Registry), len(sf.Exclusions))
	}
	if sf.Sources[0].Timeout != 8*time.Second {
		t.Errorf("Expected timeout 8s, got %s", sf.Sources[0].Timeout)
	}
}
