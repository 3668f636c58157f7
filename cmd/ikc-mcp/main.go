// cmd/ikc-mcp/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/afero"

	"github.com/MereWhiplash/ikc-search/internal/client"
	"github.com/MereWhiplash/ikc-search/internal/config"
	"github.com/MereWhiplash/ikc-search/internal/embedder"
	"github.com/MereWhiplash/ikc-search/internal/service"
	"github.com/MereWhiplash/ikc-search/internal/storage"
	"github.com/MereWhiplash/ikc-search/internal/tools"
)

// version is set by goreleaser via ldflags
var version = "dev"

type options struct {
	configPath string
	apiURL     string
	storePath  string
	version    bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("ikc-mcp", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "Config file (default: "+config.DefaultPath+" if present)")
	fs.StringVar(&o.apiURL, "api-url", "", "Proxy searches to a running ikc-api instead of opening the store (or IKC_API_URL)")
	fs.StringVar(&o.storePath, "store", "", "Vector store directory (chromem) or database file (sqlite)")
	fs.BoolVar(&o.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}

	// Check for env var if flag not set
	if o.apiURL == "" {
		o.apiURL = os.Getenv("IKC_API_URL")
	}
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if opts.version {
		fmt.Printf("ikc-mcp %s\n", version)
		return
	}

	// stdout carries the MCP protocol
	log.SetOutput(os.Stderr)

	cfg, err := config.Load(afero.NewOsFs(), opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if opts.storePath != "" {
		cfg.Storage.Path = opts.storePath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var searcher tools.Searcher
	if opts.apiURL != "" {
		log.Printf("Proxying searches to %s", opts.apiURL)
		searcher = client.New(opts.apiURL)
	} else {
		svc, err := openLocal(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to open local store: %v", err)
		}
		defer svc.Close()
		searcher = svc
	}

	// Create MCP server
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ikc-search",
		Version: version,
	}, nil)

	// Register tools
	tools.Register(server, tools.NewHandler(searcher, cfg.Server.SnippetLength))

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutting down...")
		cancel()
	}()

	// Start server with stdio transport
	log.Println("Starting IKC search MCP server...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func openLocal(ctx context.Context, cfg config.Config) (*service.Service, error) {
	storeCfg, err := cfg.StorageConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	return service.New(store, embedder.NewLazyFromConfig(cfg.EmbedderConfig())), nil
}
