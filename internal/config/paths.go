package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths resolves every directory the application touches relative to a single
// base directory. Keeping resolution in one place avoids the drift between
// working-directory-relative and executable-relative paths.
type Paths struct {
	BaseDir    string
	DataDir    string
	RawDir     string
	ReportsDir string
	WebDir     string
	LogsDir    string
}

// NewPaths builds a Paths rooted at baseDir using the configured directory names.
func NewPaths(baseDir string, cfg PathsConfig, dataCfg DataConfig) *Paths {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}

	return &Paths{
		BaseDir:    baseDir,
		DataDir:    resolve(cfg.DataDir),
		RawDir:     resolve(dataCfg.InputDir),
		ReportsDir: resolve(cfg.ReportsDir),
		WebDir:     resolve(cfg.WebDir),
		LogsDir:    resolve(cfg.LogsDir),
	}
}

// DefaultPaths resolves paths against the current working directory.
func DefaultPaths(cfg *Config) (*Paths, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}
	return NewPaths(wd, cfg.Paths, cfg.Data), nil
}

// EnsureDirectories creates every managed directory that does not yet exist.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.RawDir, p.ReportsDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ReportPath returns the full path for a report file.
func (p *Paths) ReportPath(name string) string {
	return filepath.Join(p.ReportsDir, name)
}

// RawPath returns the full path for a raw input file.
func (p *Paths) RawPath(name string) string {
	return filepath.Join(p.RawDir, name)
}

// LogPath returns the full path for a log file.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}
