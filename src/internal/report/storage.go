package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Storage interface {
	Save(report *Report, content, ext string) (string, error)
}

// FileStorage writes one file per report under OutputDir.
type FileStorage struct {
	OutputDir string
}

func NewFileStorage(outputDir string) *FileStorage {
	if outputDir == "" {
		outputDir = "reports"
	}
	return &FileStorage{OutputDir: outputDir}
}

// sanitizeFilenameComponent keeps [A-Za-z0-9._-] and maps the rest to '_'.
func sanitizeFilenameComponent(s string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			return r
		case r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, strings.TrimSpace(s))
	if out = strings.Trim(out, "._-"); out == "" {
		return "unknown"
	}
	return out
}

// fileName is reentry_report_<run id or short fingerprint>_<unix nanos>.<ext>.
func fileName(report *Report, ext string) string {
	name := report.RunID
	if name == "" && report.Result != nil && len(report.Result.Fingerprint) > 10 {
		name = report.Result.Fingerprint[:10] // 0x + 8 hex
	}
	if ext == "" {
		ext = "md"
	}
	return fmt.Sprintf("reentry_report_%s_%d.%s",
		sanitizeFilenameComponent(name), time.Now().UnixNano(), sanitizeFilenameComponent(ext))
}

func (s *FileStorage) Save(report *Report, content, ext string) (string, error) {
	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(s.OutputDir, fileName(report, ext))
	if err := writeAtomic(path, content); err != nil {
		return "", err
	}
	return path, nil
}

// writeAtomic writes through a temp file in the same directory so readers
// never see a partial report.
func writeAtomic(path, content string) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp report file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.WriteString(content); err != nil {
		return fmt.Errorf("failed to write temp report file: %w", err)
	}
	if err = tmp.Chmod(0644); err != nil {
		return fmt.Errorf("failed to chmod temp report file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp report file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to finalize report file: %w", err)
	}
	return nil
}
