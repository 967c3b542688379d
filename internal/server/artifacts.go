package server

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/oakridge-association/sitesearch/internal/indexing"
)

// artifactHandler serves the two search artifacts with strong ETags.
// Content is cached per file and reloaded when its modification time
// changes, so a rebuild is picked up without a restart.
type artifactHandler struct {
	dir string

	mu    sync.Mutex
	cache map[string]*artifact
}

type artifact struct {
	modTime time.Time
	data    []byte
	etag    string
}

var servedArtifacts = map[string]bool{
	indexing.IndexFile:   true,
	indexing.CatalogFile: true,
}

func newArtifactHandler(dir string) *artifactHandler {
	return &artifactHandler{dir: dir, cache: make(map[string]*artifact)}
}

func (h *artifactHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if !servedArtifacts[name] || h.dir == "" {
		http.NotFound(w, r)
		return
	}

	a, err := h.load(name)
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "failed to read artifact", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", a.etag)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, a.modTime, bytes.NewReader(a.data))
}

func (h *artifactHandler) load(name string) (*artifact, error) {
	path := filepath.Join(h.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if a, ok := h.cache[name]; ok && a.modTime.Equal(info.ModTime()) {
		return a, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a := &artifact{
		modTime: info.ModTime(),
		data:    data,
		etag:    fmt.Sprintf(`"%016x"`, xxhash.Sum64(data)),
	}
	h.cache[name] = a
	return a, nil
}
