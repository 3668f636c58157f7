// cmd/ikc-api/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/MereWhiplash/ikc-search/internal/api"
	"github.com/MereWhiplash/ikc-search/internal/config"
	"github.com/MereWhiplash/ikc-search/internal/embedder"
	"github.com/MereWhiplash/ikc-search/internal/service"
	"github.com/MereWhiplash/ikc-search/internal/storage"
)

// version is set by goreleaser via ldflags
var version = "dev"

// options holds the command-line flags. Empty values keep the config file's setting.
type options struct {
	configPath     string
	addr           string
	preload        bool
	storageDriver  string
	storePath      string
	collection     string
	postgresDSN    string
	mongoURI       string
	provider       string
	ollamaURL      string
	embeddingModel string
	rateLimit      int
	corsOrigins    string
	version        bool
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("ikc-api", flag.ContinueOnError)

	fs.StringVar(&o.configPath, "config", "", "Config file (default: "+config.DefaultPath+" if present)")

	// Server flags
	fs.StringVar(&o.addr, "addr", "", "Server address (default :5000)")
	fs.BoolVar(&o.preload, "preload", false, "Load the embedding model at startup instead of on the first query")

	// Storage flags
	fs.StringVar(&o.storageDriver, "storage-driver", "", "Storage driver: chromem, sqlite, postgres, mongodb")
	fs.StringVar(&o.storePath, "store", "", "Vector store directory (chromem) or database file (sqlite)")
	fs.StringVar(&o.collection, "collection", "", "Collection or table prefix")
	fs.StringVar(&o.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	fs.StringVar(&o.mongoURI, "mongodb-uri", "", "MongoDB connection URI")

	// Embedder flags
	fs.StringVar(&o.provider, "embedding-provider", "", "Embedding provider: ollama, openai, hash")
	fs.StringVar(&o.ollamaURL, "ollama-url", "", "Ollama API URL")
	fs.StringVar(&o.embeddingModel, "embedding-model", "", "Embedding model")

	// Rate limiting flags
	fs.IntVar(&o.rateLimit, "rate-limit", -1, "Requests per minute per IP (0 to disable)")

	// CORS flags
	fs.StringVar(&o.corsOrigins, "cors-origins", "", "Comma-separated list of allowed CORS origins (empty to disable)")

	fs.BoolVar(&o.version, "version", false, "Print version and exit")

	err := fs.Parse(args)
	return o, err
}

// apply overrides cfg with the flags that were set
func (o options) apply(cfg *config.Config) {
	setString(&cfg.Server.Addr, o.addr)
	setString(&cfg.Storage.Driver, o.storageDriver)
	setString(&cfg.Storage.Path, o.storePath)
	setString(&cfg.Storage.Collection, o.collection)
	setString(&cfg.Storage.PostgresDSN, o.postgresDSN)
	setString(&cfg.Storage.MongoDBURI, o.mongoURI)
	setString(&cfg.Embedder.Provider, o.provider)
	setString(&cfg.Embedder.BaseURL, o.ollamaURL)
	setString(&cfg.Embedder.Model, o.embeddingModel)
	if o.rateLimit >= 0 {
		cfg.Server.RateLimit = o.rateLimit
	}
	if o.corsOrigins != "" {
		origins := strings.Split(o.corsOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.Server.CORSOrigins = origins
	}
	if o.preload {
		cfg.Server.Preload = true
	}
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if opts.version {
		fmt.Printf("ikc-api %s\n", version)
		return
	}

	cfg, err := config.Load(afero.NewOsFs(), opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override the config file
	opts.apply(&cfg)

	ctx := context.Background()

	storeCfg, err := cfg.StorageConfig()
	if err != nil {
		log.Fatalf("Invalid storage config: %v", err)
	}

	// Initialize storage
	store, err := storage.New(ctx, storeCfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// The model is loaded on the first query unless -preload is set
	emb := embedder.NewLazyFromConfig(cfg.EmbedderConfig())

	// Create service
	svc := service.New(store, emb)

	if cfg.Server.Preload {
		log.Printf("Loading embedding model %s...", cfg.EmbeddingModel())
		if err := svc.Preload(ctx); err != nil {
			log.Fatalf("Failed to load embedding model: %v", err)
		}
	}

	// Create handlers
	handlers := api.NewHandlers(svc, api.Config{
		Collection:    storeCfg.Collection,
		SnippetLength: cfg.Server.SnippetLength,
		Limit:         cfg.Search.Limit,
	})

	// Set health check to verify storage connectivity
	handlers.SetHealthCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := store.Count(ctx)
		return err
	})

	// Setup router
	r := api.NewRouter(handlers, api.RouterOptions{
		RateLimit:   cfg.Server.RateLimit,
		CORSOrigins: cfg.Server.CORSOrigins,
		AccessLog:   true,
	})

	// Create server
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}

		close(done)
	}()

	// Start server
	log.Printf("Starting IKC search API on %s (storage=%s, collection=%s)", cfg.Server.Addr, storeCfg.Driver, storeCfg.Collection)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	<-done
	fmt.Println("Server stopped")
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
