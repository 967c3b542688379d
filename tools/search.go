// Package tools exposes the site search over MCP.
package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oakridge-association/sitesearch/internal/search"
)

// maxToolResults caps search_site so a single call stays readable.
const maxToolResults = 20

// Searcher is the query surface the tools need.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...search.Option) (*search.Result, error)
	Suggestions(ctx context.Context, partial string, limit int, filters search.Filters) []search.Suggestion
	FilterOptions(ctx context.Context) (*search.FilterOptions, error)
}

// SearchSiteInput defines input for search_site tool
type SearchSiteInput struct {
	Query      string         `json:"query" jsonschema:"Free-text query; words match any field, title:/content:/summary:/tags:/category:/type: restrict a word to one field, trailing * matches a prefix, +word is required and -word excluded"`
	Filters    search.Filters `json:"filters,omitempty" jsonschema:"Optional filters; every dimension given must match"`
	MaxResults int            `json:"max_results,omitempty" jsonschema:"Maximum number of results (optional, defaults to 10, at most 20)"`
}

// SearchSiteHit is one ranked document.
type SearchSiteHit struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Title   string   `json:"title"`
	Summary string   `json:"summary,omitempty"`
	URL     string   `json:"url"`
	Date    string   `json:"date,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Score   float64  `json:"score"`
}

// SearchSiteOutput defines output for search_site tool
type SearchSiteOutput struct {
	Query          string          `json:"query"`
	Results        []SearchSiteHit `json:"results"`
	Total          int             `json:"total"`
	TotalDocuments int             `json:"total_documents"`
	Error          string          `json:"error,omitempty"`
}

// SuggestInput defines input for suggest tool
type SuggestInput struct {
	Partial string         `json:"partial" jsonschema:"Partial input, at least two characters"`
	Filters search.Filters `json:"filters,omitempty" jsonschema:"Optional filters the suggestions must satisfy"`
	Limit   int            `json:"limit,omitempty" jsonschema:"Maximum number of suggestions (optional, defaults to 5)"`
}

// SuggestOutput defines output for suggest tool
type SuggestOutput struct {
	Suggestions []SuggestItem `json:"suggestions"`
}

// SuggestItem is a single completion.
type SuggestItem struct {
	Text string `json:"text"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// FilterOptionsInput defines input for filter_options tool
type FilterOptionsInput struct{}

// FilterOptionsOutput defines output for filter_options tool
type FilterOptionsOutput struct {
	Types      []string `json:"types"`
	Categories []string `json:"categories"`
	Difficulty []string `json:"difficulty"`
	Years      []string `json:"years"`
	Quarters   []string `json:"quarters"`
	Tags       []string `json:"tags"`
}

// SearchTools holds the handlers for one engine.
type SearchTools struct {
	engine Searcher
}

// NewSearchTools creates the handlers for engine.
func NewSearchTools(engine Searcher) *SearchTools {
	return &SearchTools{engine: engine}
}

// SearchSite runs a full query. Query errors come back in the output's
// error field; an index that cannot be loaded fails the call.
func (t *SearchTools) SearchSite(ctx context.Context, req *mcp.CallToolRequest, input SearchSiteInput) (*mcp.CallToolResult, SearchSiteOutput, error) {
	maxResults := input.MaxResults
	if maxResults <= 0 || maxResults > maxToolResults {
		maxResults = 10
	}

	res, err := t.engine.Search(ctx, input.Query, search.WithFilters(input.Filters), search.WithLimit(maxResults))
	if err != nil {
		return nil, SearchSiteOutput{}, fmt.Errorf("search unavailable: %w", err)
	}

	out := SearchSiteOutput{
		Query:          res.Query,
		Results:        make([]SearchSiteHit, 0, len(res.Results)),
		Total:          res.Total,
		TotalDocuments: res.Metadata.TotalDocuments,
		Error:          res.Error,
	}
	for _, h := range res.Results {
		out.Results = append(out.Results, SearchSiteHit{
			ID:      h.ID,
			Type:    string(h.Type),
			Title:   h.Title,
			Summary: h.Summary,
			URL:     h.URL,
			Date:    h.Date,
			Tags:    h.Tags,
			Score:   h.Score,
		})
	}
	return nil, out, nil
}

// Suggest returns title completions for partial input.
func (t *SearchTools) Suggest(ctx context.Context, req *mcp.CallToolRequest, input SuggestInput) (*mcp.CallToolResult, SuggestOutput, error) {
	got := t.engine.Suggestions(ctx, input.Partial, input.Limit, input.Filters)
	out := SuggestOutput{Suggestions: make([]SuggestItem, 0, len(got))}
	for _, s := range got {
		out.Suggestions = append(out.Suggestions, SuggestItem{Text: s.Text, Type: string(s.Type), URL: s.URL})
	}
	return nil, out, nil
}

// FilterOptions lists the values each filter can take.
func (t *SearchTools) FilterOptions(ctx context.Context, req *mcp.CallToolRequest, input FilterOptionsInput) (*mcp.CallToolResult, FilterOptionsOutput, error) {
	opts, err := t.engine.FilterOptions(ctx)
	if err != nil {
		return nil, FilterOptionsOutput{}, fmt.Errorf("failed to load filter options: %w", err)
	}
	return nil, FilterOptionsOutput{
		Types:      opts.Types,
		Categories: opts.Categories,
		Difficulty: opts.Difficulty,
		Years:      opts.Years,
		Quarters:   opts.Quarters,
		Tags:       opts.Tags,
	}, nil
}

// Register adds search_site, suggest and filter_options to server.
func (t *SearchTools) Register(server *mcp.Server) {
	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "search_site",
			Description: "Full-text search over the association's newsletters, meeting minutes, resources and glossary. Returns ranked documents with deep links.",
		},
		t.SearchSite,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "suggest",
			Description: "Suggest document titles that complete a partial query (two characters or more).",
		},
		t.Suggest,
	)

	mcp.AddTool(server,
		&mcp.Tool{
			Name:        "filter_options",
			Description: "List the document types, categories, difficulty levels, years, quarters and tags present in the index.",
		},
		t.FilterOptions,
	)
}
