// Package invindex is a small inverted index with per-field boosts and
// BM25 scoring. Its serialized form is plain JSON and is a pure function
// of the documents added, in the order they were added.
package invindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/oakridge-association/sitesearch/internal/fts"
)

// FormatVersion is bumped whenever the serialized layout changes.
const FormatVersion = 1

// ErrDuplicateRef is returned when a reference is added twice.
var ErrDuplicateRef = errors.New("duplicate document reference")

// Builder accumulates documents for a single index. It is not safe for
// concurrent use.
type Builder struct {
	analyzer *Analyzer
	fields   []fts.Field
	fieldIdx map[string]int

	refs     []string
	seen     map[string]struct{}
	lengths  [][]int
	postings map[string][]posting
}

// NewBuilder creates a builder for the given fields.
func NewBuilder(fields []fts.Field) (*Builder, error) {
	if len(fields) == 0 {
		return nil, errors.New("at least one field is required")
	}
	analyzer, err := NewAnalyzer()
	if err != nil {
		return nil, err
	}

	fieldIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := fieldIdx[f.Name]; dup {
			return nil, fmt.Errorf("field %q declared twice", f.Name)
		}
		fieldIdx[f.Name] = i
	}

	return &Builder{
		analyzer: analyzer,
		fields:   append([]fts.Field(nil), fields...),
		fieldIdx: fieldIdx,
		seen:     make(map[string]struct{}),
		postings: make(map[string][]posting),
	}, nil
}

// Add indexes one document. values maps field names to text; fields the
// builder does not know are ignored.
func (b *Builder) Add(ref string, values map[string]string) error {
	if ref == "" {
		return errors.New("empty document reference")
	}
	if _, dup := b.seen[ref]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateRef, ref)
	}
	b.seen[ref] = struct{}{}

	doc := len(b.refs)
	b.refs = append(b.refs, ref)
	lengths := make([]int, len(b.fields))

	for fi, f := range b.fields {
		terms := b.analyzer.Terms(values[f.Name])
		lengths[fi] = len(terms)

		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		for t, n := range tf {
			b.postings[t] = append(b.postings[t], posting{Doc: doc, Field: fi, TF: n})
		}
	}
	b.lengths = append(b.lengths, lengths)
	return nil
}

// Len returns the number of documents added so far.
func (b *Builder) Len() int {
	return len(b.refs)
}

// Build freezes the builder's documents into a searchable index.
func (b *Builder) Build() *Index {
	terms := make([]string, 0, len(b.postings))
	for t := range b.postings {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	entries := make([]termEntry, len(terms))
	for i, t := range terms {
		ps := append([]posting(nil), b.postings[t]...)
		sort.Slice(ps, func(a, c int) bool {
			if ps[a].Doc != ps[c].Doc {
				return ps[a].Doc < ps[c].Doc
			}
			return ps[a].Field < ps[c].Field
		})
		entries[i] = termEntry{Term: t, Postings: ps}
	}

	lengths := make([][]int, len(b.lengths))
	for i, l := range b.lengths {
		lengths[i] = append([]int(nil), l...)
	}

	return newIndex(b.analyzer, snapshot{
		Version:        FormatVersion,
		Analyzer:       AnalyzerName,
		Fields:         append([]fts.Field(nil), b.fields...),
		Refs:           append([]string(nil), b.refs...),
		FieldLengths:   lengths,
		AvgFieldLength: averageLengths(lengths, len(b.fields)),
		Terms:          entries,
	})
}

func averageLengths(lengths [][]int, nfields int) []float64 {
	avg := make([]float64, nfields)
	if len(lengths) == 0 {
		return avg
	}
	for _, l := range lengths {
		for fi, n := range l {
			avg[fi] += float64(n)
		}
	}
	for fi := range avg {
		avg[fi] /= float64(len(lengths))
	}
	return avg
}
