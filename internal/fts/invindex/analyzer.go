package invindex

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/registry"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AnalyzerName is recorded in the serialized index so a reader can tell
// which pipeline produced the term dictionary.
const AnalyzerName = "en+fold"

type tokenAnalyzer interface {
	Analyze([]byte) analysis.TokenStream
}

// Analyzer turns text into index terms: accents are folded, then the
// bleve English analyzer tokenizes, lowercases, drops stop words and
// stems.
type Analyzer struct {
	en tokenAnalyzer
}

// NewAnalyzer resolves the English analyzer from the bleve registry.
func NewAnalyzer() (*Analyzer, error) {
	cache := registry.NewCache()
	a, err := cache.AnalyzerNamed(en.AnalyzerName)
	if err != nil {
		return nil, fmt.Errorf("failed to load analyzer %q: %w", en.AnalyzerName, err)
	}
	return &Analyzer{en: a}, nil
}

// Terms returns the analyzed terms of text in token order, duplicates
// included.
func (a *Analyzer) Terms(text string) []string {
	text = Fold(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	stream := a.en.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// Prefixes returns the dictionary prefixes to try for a wildcard term:
// the folded, lowercased input and, when it differs, its stemmed form.
func (a *Analyzer) Prefixes(term string) []string {
	folded := strings.ToLower(Fold(strings.TrimSpace(term)))
	if folded == "" {
		return nil
	}
	out := []string{folded}
	if stemmed := a.Terms(folded); len(stemmed) == 1 && stemmed[0] != folded && stemmed[0] != "" {
		out = append(out, stemmed[0])
	}
	return out
}

// Fold strips combining marks so "Café" and "cafe" index alike.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
