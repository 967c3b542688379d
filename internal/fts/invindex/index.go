package invindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/oakridge-association/sitesearch/internal/fts"
)

// BM25 parameters.
const (
	k1 = 1.2
	b  = 0.75
)

type posting struct {
	Doc   int
	Field int
	TF    int
}

// Postings are serialized as compact [doc, field, tf] triples.
func (p posting) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{p.Doc, p.Field, p.TF})
}

func (p *posting) UnmarshalJSON(data []byte) error {
	var v [3]int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Doc, p.Field, p.TF = v[0], v[1], v[2]
	return nil
}

type termEntry struct {
	Term     string    `json:"t"`
	Postings []posting `json:"p"`
}

// snapshot is the serialized layout.
type snapshot struct {
	Version        int         `json:"version"`
	Analyzer       string      `json:"analyzer"`
	Fields         []fts.Field `json:"fields"`
	Refs           []string    `json:"refs"`
	FieldLengths   [][]int     `json:"fieldLengths"`
	AvgFieldLength []float64   `json:"avgFieldLength"`
	Terms          []termEntry `json:"terms"`
}

// Index is an immutable, loaded inverted index. It is safe for
// concurrent searches.
type Index struct {
	analyzer *Analyzer
	snap     snapshot
	terms    []string // sorted dictionary, parallel to snap.Terms
	fieldIdx map[string]int
	idf      []float64
	closed   atomic.Bool
}

var _ fts.Index = (*Index)(nil)

func newIndex(analyzer *Analyzer, snap snapshot) *Index {
	ix := &Index{
		analyzer: analyzer,
		snap:     snap,
		terms:    make([]string, len(snap.Terms)),
		fieldIdx: make(map[string]int, len(snap.Fields)),
		idf:      make([]float64, len(snap.Terms)),
	}
	for i, f := range snap.Fields {
		ix.fieldIdx[f.Name] = i
	}
	n := float64(len(snap.Refs))
	for i, e := range snap.Terms {
		ix.terms[i] = e.Term
		df := 0
		last := -1
		for _, p := range e.Postings {
			if p.Doc != last {
				df++
				last = p.Doc
			}
		}
		ix.idf[i] = math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))
	}
	return ix
}

// Load deserializes an index. It performs no validation beyond decoding.
func Load(data []byte) (*Index, error) {
	return Read(bytes.NewReader(data))
}

// Read deserializes an index from r.
func Read(r io.Reader) (*Index, error) {
	var snap snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	analyzer, err := NewAnalyzer()
	if err != nil {
		return nil, err
	}
	return newIndex(analyzer, snap), nil
}

// Marshal returns the serialized index.
func (ix *Index) Marshal() ([]byte, error) {
	return json.Marshal(ix.snap)
}

// WriteTo writes the serialized index to w.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	data, err := ix.Marshal()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Refs returns the document references in insertion order.
func (ix *Index) Refs() []string {
	return append([]string(nil), ix.snap.Refs...)
}

// TermCount returns the size of the term dictionary.
func (ix *Index) TermCount() int {
	return len(ix.terms)
}

func (ix *Index) Fields() []fts.Field {
	return append([]fts.Field(nil), ix.snap.Fields...)
}

func (ix *Index) DocCount() (uint64, error) {
	if ix.closed.Load() {
		return 0, fts.ErrIndexClosed
	}
	return uint64(len(ix.snap.Refs)), nil
}

func (ix *Index) Close() error {
	ix.closed.Store(true)
	return nil
}

type clauseMatch struct {
	presence fts.Presence
	scores   map[int]float64
}

// Search scores every document against q. Hits come back by descending
// score; equal scores keep insertion order.
func (ix *Index) Search(ctx context.Context, q fts.Query) ([]fts.ScoredRef, error) {
	if ix.closed.Load() {
		return nil, fts.ErrIndexClosed
	}

	matches := make([]clauseMatch, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		field := -1
		if c.Field != "" {
			fi, ok := ix.fieldIdx[c.Field]
			if !ok {
				return nil, fmt.Errorf("%w: %s", fts.ErrUnknownField, c.Field)
			}
			field = fi
		}

		termIDs := ix.expand(c)
		if termIDs == nil {
			// Only stop words; the clause cannot constrain anything.
			continue
		}
		matches = append(matches, clauseMatch{
			presence: c.Presence,
			scores:   ix.scoreTerms(termIDs, field, c.Boost),
		})
	}
	if len(matches) == 0 {
		return nil, nil
	}

	return ix.combine(matches), nil
}

// expand resolves a clause into dictionary ids. A nil result means the
// clause analyzed to nothing.
func (ix *Index) expand(c fts.Clause) []int {
	seen := make(map[int]struct{})
	ids := []int{}
	add := func(id int) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	if c.Prefix {
		prefixes := ix.analyzer.Prefixes(c.Term)
		if len(prefixes) == 0 {
			return nil
		}
		for _, p := range prefixes {
			start := sort.SearchStrings(ix.terms, p)
			for i := start; i < len(ix.terms) && strings.HasPrefix(ix.terms[i], p); i++ {
				add(i)
			}
		}
		return ids
	}

	terms := ix.analyzer.Terms(c.Term)
	if len(terms) == 0 {
		return nil
	}
	for _, t := range terms {
		i := sort.SearchStrings(ix.terms, t)
		if i < len(ix.terms) && ix.terms[i] == t {
			add(i)
		}
	}
	return ids
}

func (ix *Index) scoreTerms(termIDs []int, field int, boost float64) map[int]float64 {
	scores := make(map[int]float64)
	for _, id := range termIDs {
		idf := ix.idf[id]
		for _, p := range ix.snap.Terms[id].Postings {
			if field >= 0 && p.Field != field {
				continue
			}
			if !ix.inRange(p) {
				continue
			}
			scores[p.Doc] += ix.bm25(p, idf) * ix.snap.Fields[p.Field].Boost * boost
		}
	}
	return scores
}

func (ix *Index) inRange(p posting) bool {
	return p.Doc >= 0 && p.Doc < len(ix.snap.Refs) && p.Doc < len(ix.snap.FieldLengths) &&
		p.Field >= 0 && p.Field < len(ix.snap.Fields) && p.Field < len(ix.snap.FieldLengths[p.Doc]) &&
		p.Field < len(ix.snap.AvgFieldLength)
}

func (ix *Index) bm25(p posting, idf float64) float64 {
	tf := float64(p.TF)
	dl := float64(ix.snap.FieldLengths[p.Doc][p.Field])
	avg := ix.snap.AvgFieldLength[p.Field]
	norm := 1.0
	if avg > 0 {
		norm = 1 - b + b*dl/avg
	}
	return idf * (tf * (k1 + 1)) / (tf + k1*norm)
}

func (ix *Index) combine(matches []clauseMatch) []fts.ScoredRef {
	var required, optional, prohibited []clauseMatch
	for _, m := range matches {
		switch m.presence {
		case fts.Required:
			required = append(required, m)
		case fts.Prohibited:
			prohibited = append(prohibited, m)
		default:
			optional = append(optional, m)
		}
	}

	var candidates []int
	switch {
	case len(required) > 0:
		for doc := range required[0].scores {
			candidates = append(candidates, doc)
		}
	case len(optional) > 0:
		set := make(map[int]struct{})
		for _, m := range optional {
			for doc := range m.scores {
				set[doc] = struct{}{}
			}
		}
		for doc := range set {
			candidates = append(candidates, doc)
		}
	default:
		// Only prohibited clauses: everything else matches.
		candidates = make([]int, len(ix.snap.Refs))
		for i := range candidates {
			candidates[i] = i
		}
	}

	type hit struct {
		doc   int
		score float64
	}
	hits := make([]hit, 0, len(candidates))

next:
	for _, doc := range candidates {
		for _, m := range required {
			if _, ok := m.scores[doc]; !ok {
				continue next
			}
		}
		for _, m := range prohibited {
			if _, ok := m.scores[doc]; ok {
				continue next
			}
		}
		score := 0.0
		for _, m := range required {
			score += m.scores[doc]
		}
		for _, m := range optional {
			score += m.scores[doc]
		}
		hits = append(hits, hit{doc: doc, score: score})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc < hits[j].doc
	})

	out := make([]fts.ScoredRef, len(hits))
	for i, h := range hits {
		out[i] = fts.ScoredRef{Ref: ix.snap.Refs[h.doc], Score: h.score}
	}
	return out
}
