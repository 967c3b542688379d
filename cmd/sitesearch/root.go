package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oakridge-association/sitesearch/internal/config"
	"github.com/oakridge-association/sitesearch/internal/loader"
	"github.com/oakridge-association/sitesearch/internal/log"
	"github.com/oakridge-association/sitesearch/internal/search"
)

var (
	configPath string
	debug      bool

	contentDir string
	outputDir  string
	baseURL    string
	engineName string
)

var rootCmd = &cobra.Command{
	Use:   "sitesearch",
	Short: "Full-text search for the community association site",
	Long: `sitesearch builds the search index shipped with the community site
(newsletters, meetings, resources and glossary) and queries it from the
command line, over HTTP or in an interactive terminal UI.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stderr)
		log.SetGlobalDebug(debug)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", config.DefaultPath, "config file")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&contentDir, "content", "", "content directory (overrides content_dir)")
	pf.StringVarP(&outputDir, "output", "o", "", "artifact directory (overrides output_dir)")
	pf.StringVar(&baseURL, "base-url", "", "site base URL (overrides base_url)")
	pf.StringVar(&engineName, "engine", "", `index engine, "json" or "bleve" (overrides engine)`)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if contentDir != "" {
		cfg.ContentDir = contentDir
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if engineName != "" {
		cfg.Engine = engineName
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

func newEngine(cfg *config.Config) (*search.Engine, *loader.Loader) {
	l := loader.New(cfg.ArtifactSources()...)
	return search.NewEngine(l, search.Config{
		DefaultLimit:    cfg.DefaultLimit,
		SuggestionLimit: cfg.SuggestionLimit,
	}), l
}
