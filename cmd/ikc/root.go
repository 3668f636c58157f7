package main

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/MereWhiplash/ikc-search/internal/config"
	"github.com/MereWhiplash/ikc-search/internal/embedder"
	"github.com/MereWhiplash/ikc-search/internal/service"
	"github.com/MereWhiplash/ikc-search/internal/storage"
)

// globalFlags override the config file for every subcommand
type globalFlags struct {
	configPath string
	storeDir   string
	driver     string
	provider   string
	model      string
	ollamaURL  string
	limit      int
}

type app struct {
	fs    afero.Fs
	flags globalFlags
	cfg   config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{fs: afero.NewOsFs()}

	root := &cobra.Command{
		Use:           "ikc",
		Short:         "Build and query the IKC semantic search index",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file (default "+config.DefaultPath+" if present)")
	pf.StringVar(&a.flags.storeDir, "store", "", "Vector store directory (chromem) or database file (sqlite)")
	pf.StringVar(&a.flags.driver, "storage-driver", "", "Storage driver: chromem, sqlite, postgres, mongodb")
	pf.StringVar(&a.flags.provider, "embedding-provider", "", "Embedding provider: ollama, openai, hash")
	pf.StringVar(&a.flags.model, "embedding-model", "", "Embedding model")
	pf.StringVar(&a.flags.ollamaURL, "ollama-url", "", "Ollama API URL")
	pf.IntVarP(&a.flags.limit, "limit", "n", 0, "Number of matches per query (default 3)")

	root.AddCommand(newBuildCmd(a), newQueryCmd(a), newAskCmd(a))
	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.fs, a.flags.configPath)
	if err != nil {
		return err
	}

	override := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	override(&cfg.Storage.Path, a.flags.storeDir)
	override(&cfg.Storage.Driver, a.flags.driver)
	override(&cfg.Embedder.Provider, a.flags.provider)
	override(&cfg.Embedder.Model, a.flags.model)
	override(&cfg.Embedder.BaseURL, a.flags.ollamaURL)
	if a.flags.limit > 0 {
		cfg.Search.Limit = a.flags.limit
	}

	a.cfg = cfg
	return nil
}

// openService opens the configured store with a lazily loaded model
func (a *app) openService(ctx context.Context) (*service.Service, error) {
	storeCfg, err := a.cfg.StorageConfig()
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	return service.New(store, embedder.NewLazyFromConfig(a.cfg.EmbedderConfig())), nil
}
