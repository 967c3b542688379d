package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakridge-association/sitesearch/internal/loader"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce.Duration)
	assert.Equal(t, loader.EngineJSON, cfg.EngineKind())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitesearch.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
content_dir = "content"
base_url = "https://oakridge.example"
debounce = "150ms"
engine = "bleve"

[sources]
glossary = "terms.json"

[pages]
meeting = "calendar.html"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "content", cfg.ContentDir)
	assert.Equal(t, "public/search", cfg.OutputDir)
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce.Duration)
	assert.Equal(t, loader.EngineBleve, cfg.EngineKind())
	assert.Equal(t, "terms.json", cfg.Sources.Glossary)
	assert.Equal(t, "meetings.json", cfg.Sources.Meetings)
	assert.Equal(t, "calendar.html", cfg.Pages.Meeting)
	assert.Equal(t, 50, cfg.DefaultLimit)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"engine":   `engine = "lucene"`,
		"duration": `debounce = "soon"`,
		"negative": `rate_limit = -1.0`,
		"syntax":   `content_dir = `,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sitesearch.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sitesearch.toml")
	cfg := Default()
	cfg.BaseURL = "https://oakridge.example"
	cfg.Debounce = Duration{time.Second}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestWriteTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultPath)
	require.NoError(t, WriteTemplate(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	assert.Error(t, WriteTemplate(path))
}

func TestSourcesOrder(t *testing.T) {
	names := func(c *Config) []string {
		var out []string
		for _, s := range c.ArtifactSources() {
			out = append(out, s.Name())
		}
		return out
	}

	cfg := Default()
	assert.Equal(t, []string{"embedded", "dir public/search"}, names(cfg))

	cfg.BaseURL = "https://example.org/"
	assert.Equal(t, []string{"embedded", "dir public/search", "http https://example.org/search"}, names(cfg))

	cfg.Engine = string(loader.EngineBleve)
	cfg.BaseURL = ""
	assert.Equal(t, []string{"dir public/search"}, names(cfg))
}
