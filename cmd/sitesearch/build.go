package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakridge-association/sitesearch/internal/config"
	"github.com/oakridge-association/sitesearch/internal/indexing"
	"github.com/oakridge-association/sitesearch/internal/loader"
	"github.com/oakridge-association/sitesearch/internal/log"
)

const defaultEmbedDir = "internal/loader/embedded"

var (
	buildWatch bool
	buildGzip  bool
	buildEmbed bool
	buildBleve bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build search-index.json and search-documents.json",
	Long: `Reads newsletters.json, meetings.json, resources.json and glossary.json
from the content directory and writes the search artifacts to the output
directory. A missing or malformed source is skipped with a warning; the
build fails only when no documents are found at all.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVarP(&buildWatch, "watch", "w", false, "rebuild whenever a content file changes")
	buildCmd.Flags().BoolVar(&buildGzip, "gzip", false, "also write precompressed .json.gz artifacts")
	buildCmd.Flags().BoolVar(&buildEmbed, "embed", false, "copy the artifacts into the embed directory")
	buildCmd.Flags().BoolVar(&buildBleve, "bleve", false, "also build the bleve index directory")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ex, err := indexing.NewExtractor(indexing.ExtractorOptions{
		Files:   cfg.Sources,
		Pages:   cfg.Pages,
		BaseURL: cfg.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to load record schemas: %w", err)
	}

	rebuild := func() error {
		return buildOnce(ctx, cmd, ex, cfg)
	}

	if err := rebuild(); err != nil {
		if !buildWatch {
			return err
		}
		log.ForService("indexer").Errorf("%v", err)
	}
	if !buildWatch {
		return nil
	}
	return watchContent(ctx, cfg.ContentDir, cfg.Sources, rebuild)
}

func buildOnce(ctx context.Context, cmd *cobra.Command, ex *indexing.Extractor, cfg *config.Config) error {
	opts := indexing.BuildOptions{
		OutputDir: cfg.OutputDir,
		Gzip:      buildGzip,
		Bleve:     buildBleve || cfg.EngineKind() == loader.EngineBleve,
	}
	if buildEmbed {
		opts.EmbedDir = cfg.EmbedDir
		if opts.EmbedDir == "" {
			opts.EmbedDir = defaultEmbedDir
		}
	}

	res, err := indexing.Build(ctx, ex, os.DirFS(cfg.ContentDir), opts)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	c := res.Catalog.Metadata.Types
	cmd.Printf("✓ Indexed %d documents in %s\n", res.Catalog.Metadata.TotalDocuments, res.Duration.Round(time.Millisecond))
	cmd.Printf("  newsletters: %d  meetings: %d  resources: %d  glossary: %d\n", c.Newsletter, c.Meeting, c.Resource, c.Glossary)
	cmd.Printf("  %s (%d bytes, %d terms)\n", res.IndexPath, res.IndexBytes, res.TermCount)
	cmd.Printf("  %s\n", res.CatalogPath)
	if res.BlevePath != "" {
		cmd.Printf("  %s\n", res.BlevePath)
	}
	for _, e := range res.Extraction.SourceErrors {
		cmd.Printf("  skipped source: %v\n", e)
	}
	return nil
}
