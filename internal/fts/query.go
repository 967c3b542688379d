package fts

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Presence controls how a clause constrains matching documents.
type Presence int

const (
	// Optional clauses contribute to the score but are not required.
	Optional Presence = iota
	// Required clauses must match (`+term`).
	Required
	// Prohibited clauses must not match (`-term`).
	Prohibited
)

func (p Presence) String() string {
	switch p {
	case Required:
		return "required"
	case Prohibited:
		return "prohibited"
	default:
		return "optional"
	}
}

// Clause is one term of a query. Term is the raw user text; analysis is
// left to the index so it matches whatever analyzer built it.
type Clause struct {
	Term     string
	Field    string // empty matches every field
	Prefix   bool   // trailing wildcard
	Presence Presence
	Boost    float64
}

// Query is a parsed user query.
type Query struct {
	Clauses []Clause
}

// IsEmpty reports whether the query has no clauses.
func (q Query) IsEmpty() bool {
	return len(q.Clauses) == 0
}

// ParseError describes malformed query syntax.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("query syntax error at position %d: %s", e.Pos, e.Msg)
}

// Parse parses the query syntax:
//
//	term        optional term
//	+term       required term
//	-term       prohibited term
//	field:term  term restricted to one field
//	term*       prefix match
//	term^N      clause boost
//
// Blank input yields an empty query.
func Parse(input string) (Query, error) {
	var q Query
	for _, tok := range scan(input) {
		c, ok, err := parseClause(input, tok)
		if err != nil {
			return Query{}, err
		}
		if ok {
			q.Clauses = append(q.Clauses, c)
		}
	}
	return q, nil
}

// Prefixed returns input with a trailing wildcard added to its last term.
func Prefixed(input string) string {
	input = strings.TrimRight(strings.TrimRightFunc(input, unicode.IsSpace), ":")
	if input == "" || strings.HasSuffix(input, "*") {
		return input
	}
	return input + "*"
}

type token struct {
	text string
	pos  int
}

func scan(input string) []token {
	var toks []token
	start := -1
	for i, r := range input {
		if unicode.IsSpace(r) {
			if start >= 0 {
				toks = append(toks, token{text: input[start:i], pos: start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		toks = append(toks, token{text: input[start:], pos: start})
	}
	return toks
}

// parseClause reports ok=false for tokens that carry no term.
func parseClause(input string, tok token) (Clause, bool, error) {
	fail := func(offset int, format string, args ...any) (Clause, bool, error) {
		return Clause{}, false, &ParseError{Input: input, Pos: tok.pos + offset, Msg: fmt.Sprintf(format, args...)}
	}

	c := Clause{Boost: 1}
	text := tok.text
	offset := 0

	switch text[0] {
	case '+':
		c.Presence = Required
		text, offset = text[1:], 1
	case '-':
		c.Presence = Prohibited
		text, offset = text[1:], 1
	}
	if text == "" {
		return fail(offset, "missing term after %q", tok.text)
	}

	// A colon with nothing after it is punctuation ("HOA: rules").
	if strings.HasSuffix(text, ":") {
		text = strings.TrimRight(text, ":")
		if text == "" {
			return Clause{}, false, nil
		}
	}

	if i := strings.IndexByte(text, ':'); i >= 0 {
		if i == 0 {
			return fail(offset, "missing field name before ':'")
		}
		c.Field = strings.ToLower(text[:i])
		text, offset = text[i+1:], offset+i+1
	}

	if i := strings.LastIndexByte(text, '^'); i >= 0 {
		raw := text[i+1:]
		boost, err := strconv.ParseFloat(raw, 64)
		if err != nil || boost <= 0 {
			return fail(offset+i, "invalid boost %q", raw)
		}
		c.Boost = boost
		text = text[:i]
		if text == "" {
			return fail(offset, "missing term before boost")
		}
	}

	if i := strings.IndexByte(text, '~'); i >= 0 {
		return fail(offset+i, "fuzzy matching is not supported")
	}

	if i := strings.IndexByte(text, '*'); i >= 0 {
		if i != len(text)-1 {
			return fail(offset+i, "wildcard is only supported at the end of a term")
		}
		if i == 0 {
			return fail(offset, "wildcard requires a prefix")
		}
		c.Prefix = true
		text = text[:i]
	}

	c.Term = text
	return c, true, nil
}
