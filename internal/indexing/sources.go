package indexing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
)

// SourceFiles names the content file of each document type, relative to
// the content directory.
type SourceFiles struct {
	Newsletters string `toml:"newsletters" json:"newsletters"`
	Meetings    string `toml:"meetings" json:"meetings"`
	Resources   string `toml:"resources" json:"resources"`
	Glossary    string `toml:"glossary" json:"glossary"`
}

// DefaultSourceFiles returns the conventional file names.
func DefaultSourceFiles() SourceFiles {
	return SourceFiles{
		Newsletters: "newsletters.json",
		Meetings:    "meetings.json",
		Resources:   "resources.json",
		Glossary:    "glossary.json",
	}
}

// For returns the file configured for t, falling back to the default.
func (f SourceFiles) For(t DocType) string {
	def := DefaultSourceFiles()
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	switch t {
	case TypeNewsletter:
		return pick(f.Newsletters, def.Newsletters)
	case TypeMeeting:
		return pick(f.Meetings, def.Meetings)
	case TypeResource:
		return pick(f.Resources, def.Resources)
	case TypeGlossary:
		return pick(f.Glossary, def.Glossary)
	}
	return ""
}

// Pages names the site page each document type deep-links into.
type Pages struct {
	Newsletter string `toml:"newsletter" json:"newsletter"`
	Meeting    string `toml:"meeting" json:"meeting"`
	Resource   string `toml:"resource" json:"resource"`
	Glossary   string `toml:"glossary" json:"glossary"`
}

// DefaultPages returns the site's page names.
func DefaultPages() Pages {
	return Pages{
		Newsletter: "newsletters.html",
		Meeting:    "meetings.html",
		Resource:   "resources.html",
		Glossary:   "glossary.html",
	}
}

// For returns the page configured for t, falling back to the default.
func (p Pages) For(t DocType) string {
	def := DefaultPages()
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	switch t {
	case TypeNewsletter:
		return pick(p.Newsletter, def.Newsletter)
	case TypeMeeting:
		return pick(p.Meeting, def.Meeting)
	case TypeResource:
		return pick(p.Resource, def.Resource)
	case TypeGlossary:
		return pick(p.Glossary, def.Glossary)
	}
	return ""
}

// sourceKeys are the top-level keys a source object may carry its
// records under, in preference order.
var sourceKeys = map[DocType][]string{
	TypeNewsletter: {"newsletters"},
	TypeMeeting:    {"meetings"},
	TypeResource:   {"resources"},
	TypeGlossary:   {"terms", "glossary"},
}

var errNoRecords = errors.New("no record list found")

// ReadRecords reads the raw records of one source file. Failures are
// returned as *SourceLoadError.
func ReadRecords(fsys fs.FS, name string, t DocType) ([]json.RawMessage, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, &SourceLoadError{Source: t, Path: name, Err: err}
	}
	records, err := DecodeRecords(data, sourceKeys[t]...)
	if err != nil {
		return nil, &SourceLoadError{Source: t, Path: name, Err: err}
	}
	return records, nil
}

// DecodeRecords accepts either a bare JSON array of records or an object
// holding the array under one of keys.
func DecodeRecords(data []byte, keys ...string) ([]json.RawMessage, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}

	switch data[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("malformed JSON: %w", err)
		}
		return records, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("malformed JSON: %w", err)
		}
		for _, k := range keys {
			raw, ok := obj[k]
			if !ok {
				continue
			}
			var records []json.RawMessage
			if err := json.Unmarshal(raw, &records); err != nil {
				return nil, fmt.Errorf("%q is not a list: %w", k, err)
			}
			return records, nil
		}
		return nil, fmt.Errorf("%w under keys %v", errNoRecords, keys)
	default:
		return nil, errors.New("malformed JSON: expected an object or array")
	}
}
