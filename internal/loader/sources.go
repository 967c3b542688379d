package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oakridge-association/sitesearch/internal/fts/bleveindex"
	"github.com/oakridge-association/sitesearch/internal/indexing"
)

// Source provides a Snapshot. Load returns ErrNotAvailable when the source
// has nothing to offer and the next source should be tried.
type Source interface {
	Name() string
	Load(ctx context.Context) (*Snapshot, error)
}

// EmbeddedSource serves artifacts compiled into the binary.
type EmbeddedSource struct {
	Provider DataProvider
}

// NewEmbeddedSource returns a source over the compiled-in artifacts.
func NewEmbeddedSource() *EmbeddedSource {
	return &EmbeddedSource{Provider: NewEmbeddedDataProvider()}
}

func (s *EmbeddedSource) Name() string { return "embedded" }

func (s *EmbeddedSource) Load(ctx context.Context) (*Snapshot, error) {
	indexData, err := s.Provider.ReadFile(indexing.IndexFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotAvailable
	}
	if err != nil {
		return nil, err
	}
	catalogData, err := s.Provider.ReadFile(indexing.CatalogFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotAvailable
	}
	if err != nil {
		return nil, err
	}
	return Decode(indexData, catalogData, s.Name())
}

const defaultFetchTimeout = 30 * time.Second

// HTTPSource fetches both artifacts in parallel from BaseURL.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource returns a network source rooted at baseURL.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: defaultFetchTimeout},
	}
}

func (s *HTTPSource) Name() string { return "http " + s.BaseURL }

func (s *HTTPSource) Load(ctx context.Context) (*Snapshot, error) {
	if s.BaseURL == "" {
		return nil, ErrNotAvailable
	}
	indexURL, err := artifactURL(s.BaseURL, indexing.IndexFile)
	if err != nil {
		return nil, err
	}
	catalogURL, err := artifactURL(s.BaseURL, indexing.CatalogFile)
	if err != nil {
		return nil, err
	}

	var indexData, catalogData []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		indexData, err = s.fetch(gctx, indexURL)
		return err
	})
	g.Go(func() error {
		var err error
		catalogData, err = s.fetch(gctx, catalogURL)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Decode(indexData, catalogData, s.Name())
}

func (s *HTTPSource) fetch(ctx context.Context, u string) ([]byte, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET %s: reading body: %w", u, err)
	}
	return data, nil
}

func artifactURL(base, name string) (string, error) {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	return b.ResolveReference(&url.URL{Path: name}).String(), nil
}

// Engine selects the index format a DirSource opens.
type Engine string

const (
	EngineJSON  Engine = "json"
	EngineBleve Engine = "bleve"
)

// DirSource reads artifacts from a local build output directory.
type DirSource struct {
	Dir    string
	Engine Engine
}

// NewDirSource returns a source over a build output directory.
func NewDirSource(dir string, engine Engine) *DirSource {
	return &DirSource{Dir: dir, Engine: engine}
}

func (s *DirSource) Name() string { return "dir " + s.Dir }

func (s *DirSource) Load(ctx context.Context) (*Snapshot, error) {
	if s.Dir == "" {
		return nil, ErrNotAvailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	catalogData, err := os.ReadFile(filepath.Join(s.Dir, indexing.CatalogFile))
	if err != nil {
		return nil, err
	}

	if s.Engine == EngineBleve {
		catalog, err := DecodeCatalog(catalogData)
		if err != nil {
			return nil, err
		}
		index, err := bleveindex.Open(filepath.Join(s.Dir, indexing.BleveIndexDir), indexing.Fields)
		if err != nil {
			return nil, err
		}
		return NewSnapshot(index, catalog, s.Name()+" (bleve)"), nil
	}

	indexData, err := os.ReadFile(filepath.Join(s.Dir, indexing.IndexFile))
	if err != nil {
		return nil, err
	}
	return Decode(indexData, catalogData, s.Name())
}
