package exporter

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// GzipCopy writes a compressed copy of a report file next to the original,
// with a .gz suffix. Useful when exports are shipped elsewhere.
func (w *CSVWriter) GzipCopy(filePath string) (string, error) {
	fullPath := w.resolvePath(filePath)

	src, err := os.Open(fullPath)
	if err != nil {
		return "", fmt.Errorf("open report for compression: %w", err)
	}
	defer src.Close()

	gzPath := fullPath + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		return "", fmt.Errorf("create compressed report: %w", err)
	}

	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		dst.Close()
		os.Remove(gzPath)
		return "", fmt.Errorf("compress report: %w", err)
	}

	if err := gw.Close(); err != nil {
		dst.Close()
		os.Remove(gzPath)
		return "", fmt.Errorf("finish compressed report: %w", err)
	}

	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close compressed report: %w", err)
	}

	return gzPath, nil
}
