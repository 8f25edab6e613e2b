package http

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// HTMLHandler serves the static dashboard files.
type HTMLHandler struct {
	webDir string
}

// NewHTMLHandler creates a handler serving the given directory.
func NewHTMLHandler(webDir string) *HTMLHandler {
	return &HTMLHandler{webDir: webDir}
}

// ServeHTTP serves static assets, falling back to index.html so the
// dashboard loads on any non-API path.
func (h *HTMLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Clean(strings.TrimPrefix(r.URL.Path, "/"))
	if path == "." || path == "" {
		path = "index.html"
	}

	full := filepath.Join(h.webDir, path)
	if !strings.HasPrefix(full, filepath.Clean(h.webDir)) {
		http.NotFound(w, r)
		return
	}

	if info, err := os.Stat(full); err != nil || info.IsDir() {
		full = filepath.Join(h.webDir, "index.html")
	}

	http.ServeFile(w, r, full)
}
