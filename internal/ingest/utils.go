package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/doctext/constants"
)

// Accepted reports whether path has an extension the pipeline can classify.
func Accepted(path string) bool {
	return constants.AllowedExt(filepath.Ext(path))
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
