package indexing

import "github.com/oakridge-association/sitesearch/internal/fts"

// Indexed field names
const (
	FieldTitle    = "title"
	FieldContent  = "content"
	FieldSummary  = "summary"
	FieldTags     = "tags"
	FieldCategory = "category"
	FieldType     = "type"
)

// Fields are the indexed fields and their relevance boosts.
var Fields = []fts.Field{
	{Name: FieldTitle, Boost: 10},
	{Name: FieldContent, Boost: 5},
	{Name: FieldSummary, Boost: 3},
	{Name: FieldTags, Boost: 2},
	{Name: FieldCategory, Boost: 1},
	{Name: FieldType, Boost: 1},
}

// Artifact names
const (
	IndexFile     = "search-index.json"
	CatalogFile   = "search-documents.json"
	BleveIndexDir = "search-index.bleve"
	GzipSuffix    = ".gz"
)

const (
	// SummaryMaxLength bounds summaries, cut at a word boundary
	SummaryMaxLength = 200

	// IndexSchemaVersion increments when extraction or index layout changes
	// v1: JSON inverted index, v2: quarter field and schema-validated records
	IndexSchemaVersion = 2
)
