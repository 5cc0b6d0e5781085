package utils

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Subpath joins base and rel and verifies that the result stays
// strictly inside base.  Relative components such as ".." must not
// escape the base directory.
func Subpath(base string, rel string) (string, error) {
	path := filepath.Clean(rel)
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, rel)
	}

	r, err := filepath.Rel(base, path)
	if err != nil {
		return "", errors.WithStack(err)
	}

	if r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("%s is not inside %s, use relative paths", rel, base)
	}

	return path, nil
}
