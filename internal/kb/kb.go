// Package kb reads knowledge-base source files.
package kb

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when the knowledge-base file does not exist
var ErrNotFound = errors.New("knowledge base file not found")

// Load reads the knowledge-base file at path as UTF-8 text
func Load(fs afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to read knowledge base %s: %w", path, err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("knowledge base %s is not valid UTF-8", path)
	}

	return string(data), nil
}
