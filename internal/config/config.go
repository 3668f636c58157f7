// Package config loads the optional ~/.ikc/config.toml file shared by the
// ikc binaries. Command-line flags override anything set here.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/MereWhiplash/ikc-search/internal/embedder"
	"github.com/MereWhiplash/ikc-search/internal/storage"
	"github.com/MereWhiplash/ikc-search/internal/types"
)

// DefaultPath is read when no --config flag is given
const DefaultPath = "~/.ikc/config.toml"

// Config is the file layout
type Config struct {
	Storage  StorageConfig  `toml:"storage"`
	Embedder EmbedderConfig `toml:"embedder"`
	Server   ServerConfig   `toml:"server"`
	Build    BuildConfig    `toml:"build"`
	Search   SearchConfig   `toml:"search"`
}

// StorageConfig is the [storage] section. Dimensions 0 derives the vector
// size from the embedding model; set it for models without a known size when
// using sqlite or postgres.
type StorageConfig struct {
	Driver          string `toml:"driver"`
	Path            string `toml:"path"`
	Collection      string `toml:"collection"`
	Dimensions      int    `toml:"dimensions"`
	Compress        bool   `toml:"compress"`
	PostgresDSN     string `toml:"postgres_dsn"`
	MongoDBURI      string `toml:"mongodb_uri"`
	MongoDBDatabase string `toml:"mongodb_database"`
}

type EmbedderConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	BaseURL  string `toml:"base_url"`
	APIKey   string `toml:"api_key"`
}

type ServerConfig struct {
	Addr          string   `toml:"addr"`
	RateLimit     int      `toml:"rate_limit"`
	CORSOrigins   []string `toml:"cors_origins"`
	SnippetLength int      `toml:"snippet_length"`
	Preload       bool     `toml:"preload"`
	APIURL        string   `toml:"api_url"`
}

type BuildConfig struct {
	KBFile      string `toml:"kb_file"`
	IDPrefix    string `toml:"id_prefix"`
	Source      string `toml:"source"`
	Concurrency int    `toml:"concurrency"`
	BatchSize   int    `toml:"batch_size"`
}

type SearchConfig struct {
	Limit         int `toml:"limit"`
	SnippetLength int `toml:"snippet_length"`
}

// Default returns the settings used when no file overrides them
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Driver:          "chromem",
			Path:            "./ikc_vector_store",
			Collection:      storage.DefaultCollection,
			MongoDBDatabase: "ikc",
		},
		Embedder: EmbedderConfig{
			Provider: "ollama",
		},
		Server: ServerConfig{
			Addr:          ":5000",
			RateLimit:     100,
			SnippetLength: 400,
			APIURL:        "http://localhost:5000",
		},
		Build: BuildConfig{
			KBFile:   "ikc.txt",
			IDPrefix: "ikc",
			Source:   types.DefaultSource,
		},
		Search: SearchConfig{
			Limit:         types.DefaultLimit,
			SnippetLength: 300,
		},
	}
}

// Load reads path over the defaults. An empty path means DefaultPath, which
// may be absent; an explicit path must exist.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to expand config path %s: %w", path, err)
	}

	data, err := afero.ReadFile(fs, expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", expanded, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", expanded, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.Embedder.APIKey == "" {
		c.Embedder.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("IKC_API_URL"); v != "" {
		c.Server.APIURL = v
	}
}

// StorageConfig converts the [storage] section for storage.New
func (c Config) StorageConfig() (storage.Config, error) {
	path, err := homedir.Expand(c.Storage.Path)
	if err != nil {
		return storage.Config{}, fmt.Errorf("failed to expand storage path: %w", err)
	}
	return storage.Config{
		Driver:          c.Storage.Driver,
		Collection:      c.Storage.Collection,
		Dimensions:      c.Dimensions(),
		Path:            path,
		Compress:        c.Storage.Compress,
		PostgresDSN:     c.Storage.PostgresDSN,
		MongoDBURI:      c.Storage.MongoDBURI,
		MongoDBDatabase: c.Storage.MongoDBDatabase,
	}, nil
}

// EmbedderConfig converts the [embedder] section for embedder.New
func (c Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:   c.Embedder.Provider,
		Model:      c.EmbeddingModel(),
		BaseURL:    c.Embedder.BaseURL,
		APIKey:     c.Embedder.APIKey,
		Dimensions: c.Dimensions(),
	}
}

// EmbeddingModel returns the configured model or the provider's default
func (c Config) EmbeddingModel() string {
	if c.Embedder.Model != "" {
		return c.Embedder.Model
	}
	return embedder.DefaultModel(c.Embedder.Provider)
}

// Dimensions returns the configured vector size, or the size of the
// embedder's model when [storage] dimensions is unset
func (c Config) Dimensions() int {
	if c.Storage.Dimensions > 0 {
		return c.Storage.Dimensions
	}
	if n := embedder.ModelDimensions(c.Embedder.Provider, c.EmbeddingModel()); n > 0 {
		return n
	}
	return storage.DefaultDimensions
}
