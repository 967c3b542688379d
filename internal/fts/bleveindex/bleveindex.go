// Package bleveindex implements fts.Index on top of a bleve directory
// index. It trades the byte-identical JSON artifact of invindex for
// bleve's on-disk segments and is used by the CLI and HTTP hosts when the
// bleve engine is configured.
package bleveindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/oakridge-association/sitesearch/internal/fts"
	"github.com/oakridge-association/sitesearch/internal/fts/invindex"
)

// seqField stores insertion order for tie-breaking equal scores.
const seqField = "seq"

const batchSize = 100

// Document is one record to index.
type Document struct {
	Ref    string
	Values map[string]string
}

// Index wraps an open bleve index.
type Index struct {
	mu       sync.RWMutex
	idx      bleve.Index
	fields   []fts.Field
	analyzer *invindex.Analyzer
}

var _ fts.Index = (*Index)(nil)

func buildMapping(fields []fts.Field) *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = en.AnalyzerName

	doc := bleve.NewDocumentMapping()
	for _, f := range fields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = en.AnalyzerName
		fm.Store = false
		fm.IncludeTermVectors = false
		doc.AddFieldMappingsAt(f.Name, fm)
	}
	seq := bleve.NewNumericFieldMapping()
	seq.Store = false
	doc.AddFieldMappingsAt(seqField, seq)

	im.DefaultMapping = doc
	return im
}

// Build creates a fresh index at path, replacing whatever was there.
func Build(path string, fields []fts.Field, docs []Document) error {
	if err := os.RemoveAll(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old index: %w", err)
	}

	idx, err := bleve.New(path, buildMapping(fields))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	batch := idx.NewBatch()
	for i, d := range docs {
		body := make(map[string]interface{}, len(fields)+1)
		for _, f := range fields {
			body[f.Name] = invindex.Fold(d.Values[f.Name])
		}
		body[seqField] = float64(i)

		if err := batch.Index(d.Ref, body); err != nil {
			idx.Close()
			return fmt.Errorf("failed to add %s to batch: %w", d.Ref, err)
		}
		if (i+1)%batchSize == 0 {
			if err := idx.Batch(batch); err != nil {
				idx.Close()
				return fmt.Errorf("failed to index batch: %w", err)
			}
			batch = idx.NewBatch()
		}
	}
	if batch.Size() > 0 {
		if err := idx.Batch(batch); err != nil {
			idx.Close()
			return fmt.Errorf("failed to index final batch: %w", err)
		}
	}

	return idx.Close()
}

// Open opens an index previously written by Build. fields must match the
// ones it was built with.
func Open(path string, fields []fts.Field) (*Index, error) {
	analyzer, err := invindex.NewAnalyzer()
	if err != nil {
		return nil, err
	}
	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index %s: %w", path, err)
	}
	return &Index{
		idx:      idx,
		fields:   append([]fts.Field(nil), fields...),
		analyzer: analyzer,
	}, nil
}

func (x *Index) Fields() []fts.Field {
	return append([]fts.Field(nil), x.fields...)
}

func (x *Index) DocCount() (uint64, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.idx == nil {
		return 0, fts.ErrIndexClosed
	}
	return x.idx.DocCount()
}

func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.idx == nil {
		return nil
	}
	err := x.idx.Close()
	x.idx = nil
	return err
}

// Search translates q into a bleve boolean query.
func (x *Index) Search(ctx context.Context, q fts.Query) ([]fts.ScoredRef, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.idx == nil {
		return nil, fts.ErrIndexClosed
	}

	bq, ok, err := x.translate(q)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	count, err := x.idx.DocCount()
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bq, int(count), 0, false)
	req.SortBy([]string{"-_score", seqField})

	res, err := x.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := make([]fts.ScoredRef, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, fts.ScoredRef{Ref: hit.ID, Score: hit.Score})
	}
	return out, nil
}

func (x *Index) translate(q fts.Query) (query.Query, bool, error) {
	bq := bleve.NewBooleanQuery()
	matched, positive := false, false

	for _, c := range q.Clauses {
		fields := x.fields
		if c.Field != "" {
			if !fts.HasField(x.fields, c.Field) {
				return nil, false, fmt.Errorf("%w: %s", fts.ErrUnknownField, c.Field)
			}
			for _, f := range x.fields {
				if f.Name == c.Field {
					fields = []fts.Field{f}
				}
			}
		}

		sub, ok := x.clauseQuery(c, fields)
		if !ok {
			continue
		}
		matched = true
		switch c.Presence {
		case fts.Required:
			bq.AddMust(sub)
			positive = true
		case fts.Prohibited:
			bq.AddMustNot(sub)
		default:
			bq.AddShould(sub)
			positive = true
		}
	}
	// Only prohibited clauses: everything else matches.
	if matched && !positive {
		bq.AddMust(bleve.NewMatchAllQuery())
	}
	return bq, matched, nil
}

func (x *Index) clauseQuery(c fts.Clause, fields []fts.Field) (query.Query, bool) {
	var parts []query.Query

	if c.Prefix {
		prefixes := x.analyzer.Prefixes(c.Term)
		if len(prefixes) == 0 {
			return nil, false
		}
		for _, f := range fields {
			for _, p := range prefixes {
				pq := bleve.NewPrefixQuery(p)
				pq.SetField(f.Name)
				pq.SetBoost(f.Boost * c.Boost)
				parts = append(parts, pq)
			}
		}
	} else {
		if len(x.analyzer.Terms(c.Term)) == 0 {
			return nil, false
		}
		term := strings.TrimSpace(invindex.Fold(c.Term))
		for _, f := range fields {
			mq := bleve.NewMatchQuery(term)
			mq.SetField(f.Name)
			mq.SetBoost(f.Boost * c.Boost)
			parts = append(parts, mq)
		}
	}

	if len(parts) == 0 {
		return nil, false
	}
	return bleve.NewDisjunctionQuery(parts...), true
}

// IsIndexDir reports whether path looks like a bleve index directory.
func IsIndexDir(path string) bool {
	_, err := os.Stat(filepath.Join(path, "index_meta.json"))
	return err == nil
}
