package target

import (
	"path/filepath"
	"strings"
)

// LibraryPatterns mark vendored dependency sources.
var LibraryPatterns = []string{
	"@openzeppelin",
	"node_modules",
	"lib/openzeppelin",
	"lib/solmate",
	"lib/forge-std",
	"test/",
	"mock/",
}

// IsLibraryPath reports whether a source unit path belongs to a vendored
// dependency or a test/mock tree.
func IsLibraryPath(path string) bool {
	p := strings.ToLower(filepath.ToSlash(path))
	for _, pat := range LibraryPatterns {
		if strings.Contains(p, pat) {
			return true
		}
	}
	return false
}
