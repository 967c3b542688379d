// Package ui drives a search surface: it debounces input, runs queries
// and suggestions against the engine and renders the resulting state.
package ui

import (
	"context"

	"github.com/oakridge-association/sitesearch/internal/search"
)

// UnavailableMessage is shown when the index cannot be loaded.
const UnavailableMessage = "Search is temporarily unavailable. Please try again later."

// State is everything a surface needs to draw one frame.
type State struct {
	Query   string
	Filters search.Filters

	// FilterOptions is nil until the catalog has been scanned.
	FilterOptions    *search.FilterOptions
	FiltersCollapsed bool

	Loading bool
	Result  *search.Result

	Suggestions     []search.Suggestion
	ShowSuggestions bool

	Unavailable bool
	Message     string
}

// Surface is a host that can draw State and report user input. Render is
// called while the controller holds its lock and must not call back into
// the controller.
type Surface interface {
	Render(State)
	OnQueryChange(handler func(query string))
	OnFilterChange(handler func(filters search.Filters))
}

// Searcher is the query side of the engine. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...search.Option) (*search.Result, error)
	Suggestions(ctx context.Context, partial string, limit int, filters search.Filters) []search.Suggestion
	FilterOptions(ctx context.Context) (*search.FilterOptions, error)
}
