// Package file implements a secret backend that reads each secret
// from its own file, e.g. a directory of mode-0600 credential files.
package file

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/illikainen/snapback/src/secrets"

	"github.com/illikainen/go-utils/src/fn"
	"github.com/illikainen/go-utils/src/stringx"
	"github.com/pkg/errors"
)

func init() {
	fn.Must(secrets.Register("file", NewBackend))
}

type Backend struct {
	basePath string
}

func NewBackend(config map[string]any) (secrets.Backend, error) {
	basePath, _ := config["basePath"].(string)
	return &Backend{basePath: basePath}, nil
}

// GetSecret reads the file named by key, relative to basePath unless
// absolute.  Line endings and trailing blank lines are stripped.
func (b *Backend) GetSecret(key string) (string, bool, error) {
	path := key
	if !filepath.IsAbs(path) {
		if b.basePath == "" {
			return "", false, errors.Errorf("relative key %s requires basePath", key)
		}
		path = filepath.Join(b.basePath, path)
	}

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, errors.WithStack(err)
	}

	lines := stringx.SplitLines(strings.ReplaceAll(string(data), "\r\n", "\n"))
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return strings.Join(lines, "\n"), true, nil
}
