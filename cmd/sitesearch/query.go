package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oakridge-association/sitesearch/internal/search"
)

var (
	queryLimit   int
	suggestLimit int
	queryJSON    bool
	queryFilters search.Filters
	dateFrom     string
	dateTo       string
)

var queryCmd = &cobra.Command{
	Use:   "query [terms...]",
	Short: "Search the index",
	Long: `Searches newsletters, meetings, resources and glossary terms.

Query syntax:
  budget meeting     documents matching either term
  +budget -draft     budget required, draft excluded
  title:pool         term restricted to one field
  land*              prefix match
  dues^3             boost a term`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

var suggestCmd = &cobra.Command{
	Use:   "suggest [partial]",
	Short: "Show typeahead suggestions for partial input",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSuggest,
}

var filtersCmd = &cobra.Command{
	Use:   "filters",
	Short: "List the available filter values",
	Args:  cobra.NoArgs,
	RunE:  runFilters,
}

func addFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&queryFilters.Types, "type", "t", nil, "document types (newsletter, meeting, resource, glossary)")
	f.StringSliceVar(&queryFilters.Categories, "category", nil, "categories")
	f.StringSliceVar(&queryFilters.Difficulty, "difficulty", nil, "difficulty levels")
	f.StringSliceVar(&queryFilters.Tags, "tag", nil, "tags")
	f.StringSliceVarP(&queryFilters.Years, "year", "y", nil, "years")
	f.StringSliceVarP(&queryFilters.Quarters, "quarter", "q", nil, "quarters (Q1-Q4)")
	f.StringVar(&dateFrom, "from", "", "earliest date (inclusive)")
	f.StringVar(&dateTo, "to", "", "latest date (inclusive)")
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", search.DefaultLimit, "maximum number of results (0 for all)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result envelope as JSON")
	addFilterFlags(queryCmd)

	suggestCmd.Flags().IntVarP(&suggestLimit, "limit", "n", search.DefaultSuggestionLimit, "maximum number of suggestions")
	addFilterFlags(suggestCmd)

	filtersCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(queryCmd, suggestCmd, filtersCmd)
}

func currentFilters() search.Filters {
	f := queryFilters
	if dateFrom != "" || dateTo != "" {
		f.DateRange = &search.DateRange{From: dateFrom, To: dateTo}
	}
	return f
}

// wantJSON reports whether output should be JSON: when asked, or when
// stdout is not a terminal.
func wantJSON() bool {
	return queryJSON || !term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, l := newEngine(cfg)
	defer l.Close()

	res, err := engine.Search(cmd.Context(), strings.Join(args, " "),
		search.WithFilters(currentFilters()),
		search.WithLimit(queryLimit),
	)
	if err != nil {
		return fmt.Errorf("search unavailable: %w", err)
	}

	if wantJSON() {
		return printJSON(cmd, res)
	}
	if res.Error != "" {
		return fmt.Errorf("%s", res.Error)
	}
	if !res.HasResults {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("%d of %d results:\n\n", len(res.Results), res.Total)
	for i, h := range res.Results {
		cmd.Printf("  [%d] %s (%s, %.2f)\n", i+1, h.Title, h.Type, h.Score)
		if h.Date != "" {
			cmd.Printf("      %s\n", h.Date)
		}
		if h.Summary != "" {
			cmd.Printf("      %s\n", h.Summary)
		}
		cmd.Printf("      %s\n\n", h.URL)
	}
	return nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, l := newEngine(cfg)
	defer l.Close()

	// Suggestions never load the index themselves.
	if err := engine.Initialize(cmd.Context()); err != nil {
		return fmt.Errorf("search unavailable: %w", err)
	}
	got := engine.Suggestions(cmd.Context(), strings.Join(args, " "), suggestLimit, currentFilters())

	if wantJSON() {
		return printJSON(cmd, got)
	}
	for _, s := range got {
		cmd.Printf("%-50s %-11s %s\n", s.Text, s.Type, s.URL)
	}
	return nil
}

func runFilters(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	engine, l := newEngine(cfg)
	defer l.Close()

	opts, err := engine.FilterOptions(cmd.Context())
	if err != nil {
		return fmt.Errorf("search unavailable: %w", err)
	}
	if wantJSON() {
		return printJSON(cmd, opts)
	}

	row := func(name string, values []string) {
		cmd.Printf("%-11s %s\n", name+":", strings.Join(values, ", "))
	}
	row("types", opts.Types)
	row("categories", opts.Categories)
	row("difficulty", opts.Difficulty)
	row("years", opts.Years)
	row("quarters", opts.Quarters)
	row("tags", opts.Tags)
	return nil
}
