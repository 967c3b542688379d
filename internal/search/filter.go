package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/oakridge-association/sitesearch/internal/indexing"
)

// DateRange is an inclusive range of ISO dates. Either bound may be empty
// for an open range.
type DateRange struct {
	From string `json:"from,omitempty" jsonschema:"inclusive lower bound, ISO date"`
	To   string `json:"to,omitempty" jsonschema:"inclusive upper bound, ISO date"`
}

// Filters narrows results by document metadata. Empty dimensions impose
// no constraint; a document passes when it satisfies every non-empty one,
// matching any value within it.
type Filters struct {
	Types      []string   `json:"types,omitempty" jsonschema:"document types: newsletter, meeting, resource, glossary"`
	Categories []string   `json:"categories,omitempty" jsonschema:"categories to include"`
	Difficulty []string   `json:"difficulty,omitempty" jsonschema:"difficulty levels to include"`
	Tags       []string   `json:"tags,omitempty" jsonschema:"documents with any of these tags"`
	Years      []string   `json:"years,omitempty" jsonschema:"calendar years, e.g. 2024"`
	Quarters   []string   `json:"quarters,omitempty" jsonschema:"quarters Q1 to Q4"`
	DateRange  *DateRange `json:"dateRange,omitempty" jsonschema:"inclusive date range"`
}

// IsEmpty reports whether no dimension is present.
func (f Filters) IsEmpty() bool {
	n := f.Normalize()
	return len(n.Types) == 0 && len(n.Categories) == 0 && len(n.Difficulty) == 0 &&
		len(n.Tags) == 0 && len(n.Years) == 0 && len(n.Quarters) == 0 && n.DateRange == nil
}

// Normalize drops blank values and empty dimensions. Quarter values are
// canonicalized to "Q1".."Q4".
func (f Filters) Normalize() Filters {
	out := Filters{
		Types:      compact(f.Types, strings.ToLower),
		Categories: compact(f.Categories, nil),
		Difficulty: compact(f.Difficulty, nil),
		Tags:       compact(f.Tags, nil),
		Years:      compact(f.Years, nil),
		Quarters:   compact(f.Quarters, indexing.NormalizeQuarter),
	}
	if f.DateRange != nil {
		from, to := strings.TrimSpace(f.DateRange.From), strings.TrimSpace(f.DateRange.To)
		if from != "" || to != "" {
			out.DateRange = &DateRange{From: from, To: to}
		}
	}
	return out
}

func compact(values []string, canon func(string) string) []string {
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if canon != nil {
			v = canon(v)
		}
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate rejects values no document could ever match because they are
// malformed.
func (f Filters) Validate() error {
	n := f.Normalize()
	for _, t := range n.Types {
		if !indexing.DocType(t).Valid() {
			return fmt.Errorf("unknown document type %q", t)
		}
	}
	for _, y := range n.Years {
		if _, err := strconv.Atoi(y); err != nil {
			return fmt.Errorf("invalid year %q", y)
		}
	}
	for _, q := range f.Quarters {
		if strings.TrimSpace(q) != "" && indexing.NormalizeQuarter(q) == "" {
			return fmt.Errorf("invalid quarter %q", q)
		}
	}
	if n.DateRange != nil {
		if _, _, err := n.DateRange.bounds(); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns the hits that pass f, preserving order. It is idempotent.
func Apply(hits []Hit, f Filters) []Hit {
	p := compile(f)
	if p == nil {
		return hits
	}
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if p.match(h.CatalogEntry) {
			out = append(out, h)
		}
	}
	return out
}

// Matches reports whether a single entry passes f.
func Matches(e indexing.CatalogEntry, f Filters) bool {
	p := compile(f)
	return p == nil || p.match(e)
}

type bound struct {
	t        time.Time
	dateOnly bool
	day      string
}

func parseBound(s string) (*bound, error) {
	if s == "" {
		return nil, nil
	}
	t, err := indexing.ParseDate(s)
	if err != nil {
		return nil, fmt.Errorf("invalid date range bound: %w", err)
	}
	return &bound{t: t, dateOnly: indexing.IsDateOnly(s), day: t.Format("2006-01-02")}, nil
}

func (r *DateRange) bounds() (from, to *bound, err error) {
	if from, err = parseBound(r.From); err != nil {
		return nil, nil, err
	}
	if to, err = parseBound(r.To); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

type set map[string]struct{}

func newSet(values []string) set {
	if len(values) == 0 {
		return nil
	}
	s := make(set, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func (s set) has(v string) bool {
	_, ok := s[v]
	return ok
}

// predicate is a compiled Filters.
type predicate struct {
	types, categories, difficulty, tags, years, quarters set
	hasRange                                             bool
	from, to                                             *bound
}

func compile(f Filters) *predicate {
	n := f.Normalize()
	p := &predicate{
		types:      newSet(n.Types),
		categories: newSet(n.Categories),
		difficulty: newSet(n.Difficulty),
		tags:       newSet(n.Tags),
		years:      newSet(n.Years),
		quarters:   newSet(n.Quarters),
	}
	if n.DateRange != nil {
		p.hasRange = true
		// Validate reports malformed bounds; here they simply stay open.
		p.from, p.to, _ = n.DateRange.bounds()
	}
	if p.types == nil && p.categories == nil && p.difficulty == nil && p.tags == nil &&
		p.years == nil && p.quarters == nil && !p.hasRange {
		return nil
	}
	return p
}

func (p *predicate) match(e indexing.CatalogEntry) bool {
	if p.types != nil && !p.types.has(string(e.Type)) {
		return false
	}
	if p.categories != nil && (e.Category == "" || !p.categories.has(e.Category)) {
		return false
	}
	if p.difficulty != nil && (e.Difficulty == "" || !p.difficulty.has(e.Difficulty)) {
		return false
	}
	if p.tags != nil && !p.anyTag(e.Tags) {
		return false
	}
	if p.quarters != nil && (e.Quarter == "" || !p.quarters.has(e.Quarter)) {
		return false
	}
	if p.years == nil && !p.hasRange {
		return true
	}

	if e.Date == "" {
		return false
	}
	date, err := indexing.ParseDate(e.Date)
	if err != nil {
		return false
	}
	if p.years != nil && !p.years.has(strconv.Itoa(date.Year())) {
		return false
	}
	if p.hasRange && !inRange(date, p.from, p.to) {
		return false
	}
	return true
}

func (p *predicate) anyTag(tags []string) bool {
	for _, t := range tags {
		if p.tags.has(t) {
			return true
		}
	}
	return false
}

func inRange(date time.Time, from, to *bound) bool {
	day := date.Format("2006-01-02")
	if from != nil {
		if from.dateOnly {
			if day < from.day {
				return false
			}
		} else if date.Before(from.t) {
			return false
		}
	}
	if to != nil {
		if to.dateOnly {
			if day > to.day {
				return false
			}
		} else if date.After(to.t) {
			return false
		}
	}
	return true
}
