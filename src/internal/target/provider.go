// Package target resolves the AST inputs of a run and classifies their
// source paths.
package target

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/VectorBits/Reentry/src/internal/logger"
)

// Resolve merges positional paths with the entries of listFile. Relative
// entries of the list are taken relative to the list's directory. Every
// resulting path must exist.
func Resolve(args []string, listFile string) ([]string, error) {
	targets := append([]string{}, args...)
	if listFile != "" {
		lines, err := ReadLines(listFile)
		if err != nil {
			return nil, fmt.Errorf("read target list %s: %w", listFile, err)
		}
		base := filepath.Dir(listFile)
		for _, l := range lines {
			if !filepath.IsAbs(l) {
				l = filepath.Join(base, l)
			}
			targets = append(targets, l)
		}
		logger.Debug("Loaded %d targets from %s", len(lines), listFile)
	}

	targets = normalizeUniqueNonEmpty(targets)
	if len(targets) == 0 {
		return nil, fmt.Errorf("no targets given")
	}
	for _, t := range targets {
		if _, err := os.Stat(t); err != nil {
			return nil, fmt.Errorf("target %s: %w", t, err)
		}
	}
	return targets, nil
}
