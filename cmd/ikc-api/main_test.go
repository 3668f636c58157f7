package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/ikc-search/internal/config"
)

func TestParseFlags_OverridesConfig(t *testing.T) {
	opts, err := parseFlags([]string{
		"-store", "/var/lib/ikc/store",
		"-storage-driver", "sqlite",
		"-embedding-provider", "openai",
		"-rate-limit", "0",
		"-cors-origins", "https://a.test, https://b.test",
		"-preload",
	})
	require.NoError(t, err)

	cfg := config.Default()
	opts.apply(&cfg)

	assert.Equal(t, "/var/lib/ikc/store", cfg.Storage.Path)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "openai", cfg.Embedder.Provider)
	assert.Equal(t, 0, cfg.Server.RateLimit)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Server.Preload)
}

func TestParseFlags_UnsetKeepsConfig(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)

	cfg := config.Default()
	opts.apply(&cfg)

	assert.Equal(t, config.Default(), cfg)
}

func TestParseFlags_UnknownFlag(t *testing.T) {
	_, err := parseFlags([]string{"-store-path", "/tmp/store"})
	assert.Error(t, err)
}
