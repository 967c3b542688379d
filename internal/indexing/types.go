package indexing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DocType is the kind of content a SearchDocument came from.
type DocType string

const (
	TypeNewsletter DocType = "newsletter"
	TypeMeeting    DocType = "meeting"
	TypeResource   DocType = "resource"
	TypeGlossary   DocType = "glossary"
)

// DocTypes lists the document types in source iteration order.
var DocTypes = []DocType{TypeNewsletter, TypeMeeting, TypeResource, TypeGlossary}

// Valid reports whether t is a known type.
func (t DocType) Valid() bool {
	for _, known := range DocTypes {
		if t == known {
			return true
		}
	}
	return false
}

// SearchDocument is the flattened, indexable projection of a source record
type SearchDocument struct {
	ID         string   `json:"id"`
	Type       DocType  `json:"type"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Content    string   `json:"content"` // indexing only, never displayed
	URL        string   `json:"url"`
	Date       string   `json:"date,omitempty"`
	Quarter    string   `json:"quarter,omitempty"`
	Tags       []string `json:"tags,omitempty"` // sorted, de-duplicated
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// CatalogEntry is a SearchDocument without its content, used for display.
type CatalogEntry struct {
	ID         string   `json:"id"`
	Type       DocType  `json:"type"`
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	URL        string   `json:"url"`
	Date       string   `json:"date,omitempty"`
	Quarter    string   `json:"quarter,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Category   string   `json:"category,omitempty"`
	Difficulty string   `json:"difficulty,omitempty"`
}

// Entry strips the document down to its catalog projection.
func (d SearchDocument) Entry() CatalogEntry {
	return CatalogEntry{
		ID:         d.ID,
		Type:       d.Type,
		Title:      d.Title,
		Summary:    d.Summary,
		URL:        d.URL,
		Date:       d.Date,
		Quarter:    d.Quarter,
		Tags:       append([]string(nil), d.Tags...),
		Category:   d.Category,
		Difficulty: d.Difficulty,
	}
}

// FieldValues returns the text of every indexed field.
func (d SearchDocument) FieldValues() map[string]string {
	return map[string]string{
		FieldTitle:    d.Title,
		FieldContent:  d.Content,
		FieldSummary:  d.Summary,
		FieldTags:     strings.Join(d.Tags, " "),
		FieldCategory: d.Category,
		FieldType:     string(d.Type),
	}
}

// TypeCounts holds the number of documents per type.
type TypeCounts struct {
	Newsletter int `json:"newsletter"`
	Meeting    int `json:"meeting"`
	Resource   int `json:"resource"`
	Glossary   int `json:"glossary"`
}

// Add increments the counter for t.
func (c *TypeCounts) Add(t DocType) {
	switch t {
	case TypeNewsletter:
		c.Newsletter++
	case TypeMeeting:
		c.Meeting++
	case TypeResource:
		c.Resource++
	case TypeGlossary:
		c.Glossary++
	}
}

// CatalogMetadata describes a build.
type CatalogMetadata struct {
	TotalDocuments int        `json:"totalDocuments"`
	Types          TypeCounts `json:"types"`
	BuildDate      string     `json:"buildDate"`
	BuildID        string     `json:"buildId,omitempty"`
	IndexChecksum  string     `json:"indexChecksum,omitempty"`
	SchemaVersion  int        `json:"schemaVersion,omitempty"`
}

// Catalog is the search-documents.json artifact.
type Catalog struct {
	Documents []CatalogEntry  `json:"documents"`
	Metadata  CatalogMetadata `json:"metadata"`
}

// SourceID is a record id that may be written as a JSON number or string.
type SourceID string

func (id *SourceID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SourceID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = SourceID(n.String())
	return nil
}

// Article is a newsletter article.
type Article struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Author  string `json:"author"`
}

// Newsletter is a record of newsletters.json.
type Newsletter struct {
	ID          SourceID  `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Quarter     string    `json:"quarter"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Articles    []Article `json:"articles"`
	Tags        []string  `json:"tags"`
	Category    string    `json:"category"`
}

// AgendaItem is a meeting agenda entry.
type AgendaItem struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Presenter   string `json:"presenter"`
}

// Meeting is a record of meetings.json.
type Meeting struct {
	ID          SourceID     `json:"id"`
	Title       string       `json:"title"`
	Topic       string       `json:"topic"`
	Date        string       `json:"date"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Agenda      []AgendaItem `json:"agenda"`
	Minutes     string       `json:"minutes"`
	Tags        []string     `json:"tags"`
	Category    string       `json:"category"`
}

// Section is a resource section.
type Section struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Resource is a record of resources.json.
type Resource struct {
	ID          SourceID  `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	Difficulty  string    `json:"difficulty"`
	Sections    []Section `json:"sections"`
	Tags        []string  `json:"tags"`
	Date        string    `json:"date"`
}

// GlossaryTerm is a record of glossary.json.
type GlossaryTerm struct {
	ID         SourceID `json:"id"`
	Term       string   `json:"term"`
	Definition string   `json:"definition"`
	Category   string   `json:"category"`
	Difficulty string   `json:"difficulty"`
	Examples   []string `json:"examples"`
	Related    []string `json:"related"`
	Tags       []string `json:"tags"`
}
