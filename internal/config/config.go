// Package config loads sitesearch.toml.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/oakridge-association/sitesearch/internal/indexing"
	"github.com/oakridge-association/sitesearch/internal/loader"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "sitesearch.toml"

//go:embed sitesearch.toml.sample
var configTemplate string

type Config struct {
	ContentDir      string   `toml:"content_dir"`
	OutputDir       string   `toml:"output_dir"`
	BaseURL         string   `toml:"base_url"`
	EmbedDir        string   `toml:"embed_dir,omitempty"`
	Debounce        Duration `toml:"debounce"`
	DefaultLimit    int      `toml:"default_limit"`
	SuggestionLimit int      `toml:"suggestion_limit"`
	Engine          string   `toml:"engine"`
	Listen          string   `toml:"listen"`
	// RateLimit is requests per second per API endpoint; 0 disables it.
	RateLimit float64 `toml:"rate_limit"`

	Sources indexing.SourceFiles `toml:"sources"`
	Pages   indexing.Pages       `toml:"pages"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		ContentDir:      "data",
		OutputDir:       "public/search",
		Debounce:        Duration{300 * time.Millisecond},
		DefaultLimit:    50,
		SuggestionLimit: 5,
		Engine:          string(loader.EngineJSON),
		Listen:          "127.0.0.1:8080",
		RateLimit:       20,
		Sources:         indexing.DefaultSourceFiles(),
		Pages:           indexing.DefaultPages(),
	}
}

// Load reads the config at path. A missing file yields the defaults;
// missing keys keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch loader.Engine(c.Engine) {
	case loader.EngineJSON, loader.EngineBleve:
	default:
		return fmt.Errorf("engine must be %q or %q, got %q", loader.EngineJSON, loader.EngineBleve, c.Engine)
	}
	if c.Debounce.Duration < 0 {
		return fmt.Errorf("debounce must not be negative")
	}
	if c.SuggestionLimit < 0 {
		return fmt.Errorf("suggestion_limit must not be negative")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}

// EngineKind returns the configured index engine.
func (c *Config) EngineKind() loader.Engine {
	return loader.Engine(c.Engine)
}

// ArtifactSources lists where the artifacts are looked for, in order: the
// embedded copy, output_dir, then <base_url>/search/ when a base URL is
// set. The embedded artifacts are JSON only and are skipped for bleve.
func (c *Config) ArtifactSources() []loader.Source {
	var sources []loader.Source
	if c.EngineKind() != loader.EngineBleve {
		sources = append(sources, loader.NewEmbeddedSource())
	}
	sources = append(sources, loader.NewDirSource(c.OutputDir, c.EngineKind()))
	if c.BaseURL != "" {
		sources = append(sources, loader.NewHTTPSource(strings.TrimRight(c.BaseURL, "/")+"/search"))
	}
	return sources
}

// Save writes c as TOML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// WriteTemplate writes the commented sample config.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	return os.WriteFile(path, []byte(configTemplate), 0644)
}
