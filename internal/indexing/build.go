package indexing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/oakridge-association/sitesearch/internal/fts/bleveindex"
	"github.com/oakridge-association/sitesearch/internal/fts/invindex"
	"github.com/oakridge-association/sitesearch/internal/log"
)

// BuildOptions controls where and how artifacts are written.
type BuildOptions struct {
	OutputDir string
	Gzip      bool   // also write .json.gz siblings
	EmbedDir  string // when set, copy both artifacts here
	Bleve     bool   // also build the bleve index directory

	// Now stamps the catalog; defaults to time.Now.
	Now func() time.Time
}

// BuildResult summarizes a finished build.
type BuildResult struct {
	IndexPath   string
	CatalogPath string
	BlevePath   string
	Catalog     *Catalog
	Extraction  *Extraction
	IndexBytes  int
	TermCount   int
	Duration    time.Duration
}

// BuildIndex indexes docs in order. The result depends only on docs.
func BuildIndex(docs []SearchDocument) (*invindex.Index, error) {
	b, err := invindex.NewBuilder(Fields)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if err := b.Add(d.ID, d.FieldValues()); err != nil {
			return nil, fmt.Errorf("failed to index %s: %w", d.ID, err)
		}
	}
	return b.Build(), nil
}

// BuildCatalog projects docs into the catalog artifact.
func BuildCatalog(docs []SearchDocument, checksum string, now time.Time) *Catalog {
	cat := &Catalog{
		Documents: make([]CatalogEntry, len(docs)),
		Metadata: CatalogMetadata{
			TotalDocuments: len(docs),
			BuildDate:      now.UTC().Format(time.RFC3339),
			BuildID:        uuid.NewString(),
			IndexChecksum:  checksum,
			SchemaVersion:  IndexSchemaVersion,
		},
	}
	for i, d := range docs {
		cat.Documents[i] = d.Entry()
		cat.Metadata.Types.Add(d.Type)
	}
	return cat
}

// Checksum is the hex xxhash of the serialized index, used as its ETag.
func Checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// Build extracts every source from fsys and writes the artifacts. Zero
// documents across all sources fails with ErrEmptyCorpus.
func Build(ctx context.Context, ex *Extractor, fsys fs.FS, opts BuildOptions) (*BuildResult, error) {
	logger := log.ForService("indexer")
	start := time.Now()
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	lock := NewBuildLock(opts.OutputDir)
	if err := lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warnf("Failed to release build lock: %v", err)
		}
	}()

	extraction, err := ex.Extract(ctx, fsys)
	if err != nil {
		return nil, err
	}
	docs := extraction.Documents
	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}
	logger.Infof("✓ Extracted %d documents (%d sources failed, %d records skipped)",
		len(docs), len(extraction.SourceErrors), len(extraction.Skipped))

	index, err := BuildIndex(docs)
	if err != nil {
		return nil, err
	}
	indexData, err := index.Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize index: %w", err)
	}
	checksum := Checksum(indexData)

	catalog := BuildCatalog(docs, checksum, now())
	catalogData, err := json.Marshal(catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize catalog: %w", err)
	}

	result := &BuildResult{
		IndexPath:   filepath.Join(opts.OutputDir, IndexFile),
		CatalogPath: filepath.Join(opts.OutputDir, CatalogFile),
		Catalog:     catalog,
		Extraction:  extraction,
		IndexBytes:  len(indexData),
		TermCount:   index.TermCount(),
	}

	artifacts := map[string][]byte{
		result.IndexPath:   indexData,
		result.CatalogPath: catalogData,
	}
	for _, path := range []string{result.IndexPath, result.CatalogPath} {
		if err := writeArtifact(path, artifacts[path], opts.Gzip); err != nil {
			return nil, err
		}
	}
	logger.Infof("✓ Wrote %s (%d bytes, %d terms, checksum %s)", IndexFile, len(indexData), index.TermCount(), checksum)
	logger.Infof("✓ Wrote %s (%d documents)", CatalogFile, len(catalog.Documents))

	if opts.EmbedDir != "" {
		for _, path := range []string{result.IndexPath, result.CatalogPath} {
			dst := filepath.Join(opts.EmbedDir, filepath.Base(path))
			if err := writeArtifact(dst, artifacts[path], false); err != nil {
				return nil, fmt.Errorf("failed to copy artifact for embedding: %w", err)
			}
		}
		logger.Infof("✓ Copied artifacts to %s (rebuild the binary to embed them)", opts.EmbedDir)
	}

	if opts.Bleve {
		result.BlevePath = filepath.Join(opts.OutputDir, BleveIndexDir)
		if err := BuildBleve(result.BlevePath, docs); err != nil {
			return nil, err
		}
		logger.Infof("✓ Built bleve index %s", result.BlevePath)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// BuildBleve writes docs into a bleve index directory at path, via a
// temporary sibling so readers never see a half-built index.
func BuildBleve(path string, docs []SearchDocument) error {
	bdocs := make([]bleveindex.Document, len(docs))
	for i, d := range docs {
		bdocs[i] = bleveindex.Document{Ref: d.ID, Values: d.FieldValues()}
	}

	tmp := path + ".tmp"
	if err := bleveindex.Build(tmp, Fields, bdocs); err != nil {
		os.RemoveAll(tmp)
		return err
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove old bleve index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move bleve index into place: %w", err)
	}
	return nil
}

// writeArtifact writes data via a temp file and rename, optionally with a
// gzip sibling.
func writeArtifact(path string, data []byte, withGzip bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	if !withGzip {
		return nil
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return err
	}
	// Zero header timestamp keeps the .gz reproducible.
	zw.ModTime = time.Time{}
	zw.Name = filepath.Base(path)
	if _, err := zw.Write(data); err != nil {
		return fmt.Errorf("failed to compress %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to compress %s: %w", path, err)
	}
	return writeFileAtomic(path+GzipSuffix, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
