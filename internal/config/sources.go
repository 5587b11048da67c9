package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SourceKind selects the adapter implementation for a configured source.
type SourceKind string

const (
	SourceKindHTTP   SourceKind = "http"
	SourceKindStatic SourceKind = "static"
)

// SourcesFile is the YAML document describing candidate sources, the
// first-party registry and the exclusion denylist.
type SourcesFile struct {
	Sources    []SourceConfig    `yaml:"sources" validate:"dive"`
	Registry   []RegistryEntry   `yaml:"registry" validate:"dive"`
	Exclusions []ExclusionConfig `yaml:"exclusions" validate:"dive"`
}

// SourceConfig describes one external or internal catalog.
//
// For http sources URL may contain {query} and {limit} placeholders; ResultsPath
// names the top-level field holding the result array (empty means the body is the array).
type SourceConfig struct {
	ID            string            `yaml:"id" validate:"required"`
	Kind          SourceKind        `yaml:"kind" validate:"required,oneof=http static"`
	URL           string            `yaml:"url" validate:"required_if=Kind http"`
	ResultsPath   string            `yaml:"results_path"`
	Headers       map[string]string `yaml:"headers"`
	Timeout       time.Duration     `yaml:"timeout" validate:"gte=0"`
	RatePerSecond float64           `yaml:"rate_per_second" validate:"gte=0"`
	Internal      bool              `yaml:"internal"`
	Records       []map[string]any  `yaml:"records" validate:"required_if=Kind static"`
}

// RegistryEntry is a first-party catalog artwork.
type RegistryEntry struct {
	ID           string   `yaml:"id" validate:"required"`
	Title        string   `yaml:"title" validate:"required"`
	Artist       string   `yaml:"artist"`
	ImageURL     string   `yaml:"image_url" validate:"required_without=ThumbnailURL"`
	ThumbnailURL string   `yaml:"thumbnail_url"`
	Tags         []string `yaml:"tags"`
}

// ExclusionConfig is one row of the source denylist.
type ExclusionConfig struct {
	Name     string   `yaml:"name" validate:"required"`
	Fields   []string `yaml:"fields"`
	Patterns []string `yaml:"patterns" validate:"required,min=1"`
}

// DefaultExclusions is used when the sources file defines none.
func DefaultExclusions() []ExclusionConfig {
	return []ExclusionConfig{
		{Name: "pinterest", Patterns: []string{"pinterest", "pinimg.com"}},
		{Name: "stock", Patterns: []string{"shutterstock", "gettyimages", "istockphoto", "alamy", "dreamstime", "123rf"}},
		{Name: "print-on-demand", Patterns: []string{"redbubble", "teepublic", "zazzle"}},
	}
}

// LoadSourcesFile reads and validates a sources file. An empty path yields
// an empty document with the default exclusions.
func LoadSourcesFile(path string) (*SourcesFile, error) {
	sf := &SourcesFile{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sources file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, sf); err != nil {
			return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
		}
	}
	if err := sf.Validate(); err != nil {
		return nil, err
	}
	if len(sf.Exclusions) == 0 {
		sf.Exclusions = DefaultExclusions()
	}
	return sf, nil
}

// Validate checks struct constraints and that source ids are unique.
func (sf *SourcesFile) Validate() error {
	if err := validator.New().Struct(sf); err != nil {
		return fmt.Errorf("invalid sources file: %w", err)
	}
	seen := make(map[string]bool, len(sf.Sources))
	for _, s := range sf.Sources {
		if seen[s.ID] {
			return fmt.Errorf("invalid sources file: duplicate source id %q", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}
