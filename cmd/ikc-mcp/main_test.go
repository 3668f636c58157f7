package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	t.Setenv("IKC_API_URL", "")

	opts, err := parseFlags([]string{"-store", "/var/lib/ikc/store"})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/ikc/store", opts.storePath)
	assert.Empty(t, opts.apiURL)
}

func TestParseFlags_APIURLFromEnv(t *testing.T) {
	t.Setenv("IKC_API_URL", "http://ikc.internal:5000")

	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, "http://ikc.internal:5000", opts.apiURL)

	opts, err = parseFlags([]string{"-api-url", "http://localhost:5000"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000", opts.apiURL)
}
