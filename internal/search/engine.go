// Package search runs user queries against the loaded index, joins hits
// with the document catalog and applies metadata filters.
package search

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oakridge-association/sitesearch/internal/fts"
	"github.com/oakridge-association/sitesearch/internal/indexing"
	"github.com/oakridge-association/sitesearch/internal/loader"
	"github.com/oakridge-association/sitesearch/internal/log"
)

const (
	DefaultLimit           = 50
	DefaultSuggestionLimit = 5

	// MinSuggestionLength is the shortest input, in characters, that
	// produces suggestions.
	MinSuggestionLength = 2
)

// Initializer provides the loaded snapshot. *loader.Loader implements it.
type Initializer interface {
	Initialize(ctx context.Context) (*loader.Snapshot, error)
	Snapshot() *loader.Snapshot
}

// Config holds engine defaults.
type Config struct {
	DefaultLimit    int
	SuggestionLimit int
}

// Engine is the query engine. It is safe for concurrent use.
type Engine struct {
	init Initializer
	cfg  Config
	now  func() time.Time
	log  *log.Logger
}

// NewEngine creates an engine over init. Zero config values take the
// package defaults.
func NewEngine(init Initializer, cfg Config) *Engine {
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = DefaultSuggestionLimit
	}
	return &Engine{
		init: init,
		cfg:  cfg,
		now:  time.Now,
		log:  log.ForService("search"),
	}
}

type searchOptions struct {
	filters Filters
	limit   int
}

// Option customizes a single Search call.
type Option func(*searchOptions)

// WithFilters narrows results by metadata.
func WithFilters(f Filters) Option {
	return func(o *searchOptions) { o.filters = f }
}

// WithLimit caps the number of results. Zero or negative means unlimited.
func WithLimit(n int) Option {
	return func(o *searchOptions) {
		o.limit = n
	}
}

// Initialize loads the index if needed.
func (e *Engine) Initialize(ctx context.Context) error {
	_, err := e.init.Initialize(ctx)
	return err
}

// Loaded reports whether the index is available without loading it.
func (e *Engine) Loaded() bool {
	return e.init.Snapshot() != nil
}

// Search runs query and returns the result envelope. Loading the index on
// first use can fail with *loader.IndexLoadError, which is returned as the
// error alongside an envelope describing it. Query failures never produce
// an error; they are reported in Result.Error.
func (e *Engine) Search(ctx context.Context, query string, opts ...Option) (*Result, error) {
	o := searchOptions{limit: e.cfg.DefaultLimit}
	for _, opt := range opts {
		opt(&o)
	}
	filters := o.filters.Normalize()

	res := &Result{
		Query:   query,
		Results: []Hit{},
		Metadata: Metadata{
			SearchedAt:     e.now(),
			FiltersApplied: filters,
		},
	}

	if strings.TrimSpace(query) == "" {
		if snap := e.init.Snapshot(); snap != nil {
			res.Metadata.TotalDocuments = snap.Len()
		}
		return res, nil
	}

	snap, err := e.init.Initialize(ctx)
	if err != nil {
		res.Err = err
		res.Error = err.Error()
		return res, err
	}
	res.Metadata.TotalDocuments = snap.Len()

	hits, err := e.run(ctx, snap, query, filters)
	if err != nil {
		qerr := &QueryError{Query: query, Err: err}
		e.log.Debugf("%v", qerr)
		res.Err = qerr
		res.Error = qerr.Error()
		return res, nil
	}

	res.Total = len(hits)
	if o.limit > 0 && len(hits) > o.limit {
		hits = hits[:o.limit]
	}
	res.Results = hits
	res.HasResults = len(hits) > 0
	return res, nil
}

// run parses, scores, joins and filters. Hits keep the index order.
func (e *Engine) run(ctx context.Context, snap *loader.Snapshot, query string, filters Filters) ([]Hit, error) {
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	q, err := fts.Parse(query)
	if err != nil {
		return nil, err
	}
	refs, err := snap.Index.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, len(refs))
	for _, ref := range refs {
		entry, ok := snap.Entry(ref.Ref)
		if !ok {
			e.log.Debugf("dropping hit %s with no catalog entry", ref.Ref)
			continue
		}
		hits = append(hits, Hit{CatalogEntry: entry, Score: ref.Score})
	}
	return Apply(hits, filters), nil
}

// Suggestions returns typeahead entries for partial. It never loads the
// index: before the first successful load, or for input shorter than two
// characters, it returns an empty list. Suggestions respect filters so
// they never name a document the result list would hide.
func (e *Engine) Suggestions(ctx context.Context, partial string, limit int, filters Filters) []Suggestion {
	out := []Suggestion{}
	trimmed := strings.TrimSpace(partial)
	if utf8.RuneCountInString(trimmed) < MinSuggestionLength {
		return out
	}
	snap := e.init.Snapshot()
	if snap == nil {
		return out
	}
	if limit <= 0 {
		limit = e.cfg.SuggestionLimit
	}

	hits, err := e.run(ctx, snap, fts.Prefixed(trimmed), filters.Normalize())
	if err != nil {
		e.log.Debugf("suggestions for %q: %v", partial, err)
		return out
	}
	for _, h := range hits {
		if len(out) == limit {
			break
		}
		out = append(out, Suggestion{Text: h.Title, Type: h.Type, URL: h.URL})
	}
	return out
}

// FilterOptions scans the catalog for the values of each filter
// dimension, loading the index if needed.
func (e *Engine) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	snap, err := e.init.Initialize(ctx)
	if err != nil {
		return nil, err
	}

	types := map[string]bool{}
	categories := map[string]bool{}
	difficulty := map[string]bool{}
	tags := map[string]bool{}
	years := map[int]bool{}

	for _, d := range snap.Catalog.Documents {
		if d.Type != "" {
			types[string(d.Type)] = true
		}
		if d.Category != "" {
			categories[d.Category] = true
		}
		if d.Difficulty != "" {
			difficulty[d.Difficulty] = true
		}
		for _, t := range d.Tags {
			if t != "" {
				tags[t] = true
			}
		}
		if d.Date != "" {
			if t, err := indexing.ParseDate(d.Date); err == nil {
				years[t.Year()] = true
			}
		}
	}

	yearList := make([]int, 0, len(years))
	for y := range years {
		yearList = append(yearList, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(yearList)))
	yearStrings := make([]string, len(yearList))
	for i, y := range yearList {
		yearStrings[i] = strconv.Itoa(y)
	}

	return &FilterOptions{
		Types:      sortedKeys(types),
		Categories: sortedKeys(categories),
		Difficulty: sortedKeys(difficulty),
		Years:      yearStrings,
		Quarters:   append([]string(nil), Quarters...),
		Tags:       sortedKeys(tags),
	}, nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IsIndexLoadError reports whether err is an index load failure.
func IsIndexLoadError(err error) bool {
	var loadErr *loader.IndexLoadError
	return errors.As(err, &loadErr)
}
