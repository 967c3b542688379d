package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oakridge-association/sitesearch/internal/config"
	"github.com/oakridge-association/sitesearch/internal/loader"
	"github.com/oakridge-association/sitesearch/internal/log"
	"github.com/oakridge-association/sitesearch/internal/search"
	"github.com/oakridge-association/sitesearch/internal/version"
	"github.com/oakridge-association/sitesearch/tools"
)

const (
	serverName  = "sitesearch-mcp"
	description = "MCP server for searching the community association site"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("%s version %s\n", serverName, version.Version)
		os.Exit(0)
	}

	// MCP uses stdout for protocol
	log.SetOutput(os.Stderr)
	logger := log.ForService("mcp")
	logger.Infof("%s v%s starting...", serverName, version.Version)

	cfgPath := os.Getenv("SITESEARCH_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	l := loader.New(cfg.ArtifactSources()...)
	defer func() {
		if err := l.Close(); err != nil {
			logger.Warnf("Error closing index: %v", err)
		}
	}()
	engine := search.NewEngine(l, search.Config{
		DefaultLimit:    cfg.DefaultLimit,
		SuggestionLimit: cfg.SuggestionLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A failed load is retried by the first tool call.
	if err := engine.Initialize(ctx); err != nil {
		logger.Warnf("Site index not loaded: %v", err)
		logger.Warnf("Search will attempt to load on first use")
	}

	server := createMCPServer()
	registerTools(server, engine)

	logger.Infof("✓ Server ready and waiting for connections")

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.Errorf("Server error: %v", err)
		os.Exit(1)
	}
}

// createMCPServer initializes the MCP server
func createMCPServer() *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		&mcp.ServerOptions{Instructions: description},
	)

	log.ForService("mcp").Infof("Server initialized: %s v%s", serverName, version.Version)
	return server
}

// registerTools registers all MCP tools
func registerTools(server *mcp.Server, engine tools.Searcher) {
	tools.NewSearchTools(engine).Register(server)
	log.ForService("mcp").Infof("✓ All tools registered: 3 tools (search_site, suggest, filter_options)")
}
