package loader

import (
	"embed"
	"path"
)

// Artifacts copied by `sitesearch build --embed` land in embedded/ and are
// compiled into every binary built afterwards.
//
//go:embed embedded
var embeddedFS embed.FS

// embeddedDataProvider implements DataProvider using embed.FS.
type embeddedDataProvider struct {
	fs   embed.FS
	root string
}

// NewEmbeddedDataProvider creates a DataProvider over the compiled-in
// artifacts.
func NewEmbeddedDataProvider() DataProvider {
	return &embeddedDataProvider{fs: embeddedFS, root: "embedded"}
}

// ReadFile reads the named artifact from the embedded filesystem.
func (p *embeddedDataProvider) ReadFile(name string) ([]byte, error) {
	return p.fs.ReadFile(path.Join(p.root, name))
}
