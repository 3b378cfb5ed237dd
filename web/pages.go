package web

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Pages serves the built single-page app from dir. Paths that are not files get index.html so
// the client router can take over.
func Pages(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean != "/" && !strings.HasSuffix(clean, "/") {
			full := filepath.Join(dir, filepath.FromSlash(clean))
			if info, err := os.Stat(full); err == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
