package kb_test

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/ikc-search/internal/kb"
)

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "ikc.txt", []byte("• Badge pickup happens at the front desk before nine."), 0o644))

	text, err := kb.Load(fs, "ikc.txt")
	require.NoError(t, err)
	assert.Contains(t, text, "Badge pickup")
}

func TestLoad_Missing(t *testing.T) {
	_, err := kb.Load(afero.NewMemMapFs(), "missing.txt")

	require.Error(t, err)
	assert.True(t, errors.Is(err, kb.ErrNotFound))
	assert.Contains(t, err.Error(), "missing.txt")
}

func TestLoad_InvalidUTF8(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "bad.txt", []byte{0xff, 0xfe, 0xfd}, 0o644))

	_, err := kb.Load(fs, "bad.txt")
	assert.Error(t, err)
}
