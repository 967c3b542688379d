package loader

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oakridge-association/sitesearch/internal/fts"
	"github.com/oakridge-association/sitesearch/internal/fts/invindex"
	"github.com/oakridge-association/sitesearch/internal/indexing"
)

// Snapshot is a loaded index and catalog. It is never mutated after
// construction, so concurrent readers need no locking.
type Snapshot struct {
	Index    fts.Index
	Catalog  *indexing.Catalog
	Source   string
	LoadedAt time.Time

	byID map[string]int
}

// NewSnapshot pairs an index with its catalog.
func NewSnapshot(index fts.Index, catalog *indexing.Catalog, source string) *Snapshot {
	s := &Snapshot{
		Index:    index,
		Catalog:  catalog,
		Source:   source,
		LoadedAt: time.Now(),
		byID:     make(map[string]int, len(catalog.Documents)),
	}
	for i, d := range catalog.Documents {
		if _, dup := s.byID[d.ID]; !dup {
			s.byID[d.ID] = i
		}
	}
	return s
}

// Entry looks up a catalog entry by document id.
func (s *Snapshot) Entry(id string) (indexing.CatalogEntry, bool) {
	i, ok := s.byID[id]
	if !ok {
		return indexing.CatalogEntry{}, false
	}
	return s.Catalog.Documents[i], true
}

// Len returns the catalog size.
func (s *Snapshot) Len() int {
	return len(s.Catalog.Documents)
}

// DecodeCatalog parses search-documents.json.
func DecodeCatalog(data []byte) (*indexing.Catalog, error) {
	var cat indexing.Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	return &cat, nil
}

// Decode turns the two serialized artifacts into a Snapshot. It does no
// validation beyond decoding.
func Decode(indexData, catalogData []byte, source string) (*Snapshot, error) {
	index, err := invindex.Load(indexData)
	if err != nil {
		return nil, err
	}
	catalog, err := DecodeCatalog(catalogData)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(index, catalog, source), nil
}
