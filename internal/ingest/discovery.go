package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindInputFiles discovers raw input files under dir matching the configured
// glob patterns. Results are sorted for deterministic pipeline runs.
func FindInputFiles(dir string, patterns []string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("input directory does not exist: %s", dir)
		}
		return nil, fmt.Errorf("stat input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path is not a directory: %s", dir)
	}

	seen := make(map[string]bool)
	var files []string

	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("bad file pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] {
				continue
			}
			// Spreadsheet editors leave lock files behind; skip them.
			if strings.HasPrefix(filepath.Base(m), "~$") {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}

	sort.Strings(files)
	return files, nil
}

// ConsumerFromFilename derives a consumer name from a file path when the data
// itself has no consumer column: the file stem with common suffixes stripped.
func ConsumerFromFilename(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	for _, suffix := range []string{"_consumption", "_readings", "_data", "-consumption", "-readings", "-data"} {
		name = strings.TrimSuffix(name, suffix)
	}

	return strings.TrimSpace(name)
}
