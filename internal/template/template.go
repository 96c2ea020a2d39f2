// Package template serves the canonical PDF templates from disk by stable
// key.
package template

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pairworks/tpsflow/internal/types"
)

// CanonicalKey is the standard report template.
const CanonicalKey = "tps-vanilla"

// Keys are lowercase slugs; anything else is rejected before it can reach
// the filesystem.
var keyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Source retrieves template bytes from a directory of <key>.pdf files.
type Source struct {
	dir string
}

func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Get returns the template bytes for a key.
func (s *Source) Get(key string) ([]byte, error) {
	if !keyPattern.MatchString(key) {
		return nil, types.Validation("invalid template key %q", key)
	}
	b, err := os.ReadFile(filepath.Join(s.dir, key+".pdf"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.NotFound("template %q not found", key)
		}
		return nil, err
	}
	return b, nil
}
