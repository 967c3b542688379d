package search

import (
	"fmt"
	"time"

	"github.com/oakridge-association/sitesearch/internal/indexing"
)

// Hit is a catalog entry with its relevance score.
type Hit struct {
	indexing.CatalogEntry
	Score float64 `json:"score"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	SearchedAt     time.Time `json:"searchedAt"`
	TotalDocuments int       `json:"totalDocuments"`
	FiltersApplied Filters   `json:"filtersApplied"`
}

// Result is the envelope returned by Search. A query that fails to parse
// or execute yields an empty result with Error set, so callers can render
// "no results" uniformly while still telling the two apart.
type Result struct {
	Query      string   `json:"query"`
	Results    []Hit    `json:"results"`
	Total      int      `json:"total"`
	HasResults bool     `json:"hasResults"`
	Metadata   Metadata `json:"metadata"`
	Error      string   `json:"error,omitempty"`

	// Err is the typed error behind Error.
	Err error `json:"-"`
}

// Suggestion is a typeahead entry.
type Suggestion struct {
	Text string           `json:"text"`
	Type indexing.DocType `json:"type"`
	URL  string           `json:"url"`
}

// FilterOptions lists the values present in the catalog for each filter
// dimension.
type FilterOptions struct {
	Types      []string `json:"types"`
	Categories []string `json:"categories"`
	Difficulty []string `json:"difficulty"`
	Years      []string `json:"years"`
	Quarters   []string `json:"quarters"`
	Tags       []string `json:"tags"`
}

// Quarters is the fixed quarter list offered regardless of data.
var Quarters = []string{"Q1", "Q2", "Q3", "Q4"}

// QueryError is a recoverable failure of a single query: bad syntax, an
// unknown field or an index error.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q failed: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
