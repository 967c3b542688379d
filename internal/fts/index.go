// Package fts defines the full-text index capability the search engine
// depends on: a query model, a parser for the user query syntax and the
// Index interface implemented by the concrete index packages.
package fts

import (
	"context"
	"errors"
)

var (
	// ErrUnknownField is returned when a query restricts a term to a field
	// the index does not carry.
	ErrUnknownField = errors.New("unknown field")

	// ErrIndexClosed is returned by operations on a closed index.
	ErrIndexClosed = errors.New("index closed")
)

// Field is an indexed field and its relevance boost.
type Field struct {
	Name  string  `json:"name"`
	Boost float64 `json:"boost"`
}

// ScoredRef is a single index hit.
type ScoredRef struct {
	Ref   string  `json:"ref"`
	Score float64 `json:"score"`
}

// Index abstracts a queryable full-text index. Implementations must return
// hits in score-descending order with a deterministic tie-break.
type Index interface {
	// Search executes a parsed query and returns every matching reference.
	Search(ctx context.Context, q Query) ([]ScoredRef, error)

	// Fields returns the indexed fields with their boosts.
	Fields() []Field

	// DocCount returns the number of documents in the index.
	DocCount() (uint64, error)

	// Close releases the index.
	Close() error
}

// HasField reports whether fields contains name.
func HasField(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
