package middleware

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const placeholderLogo = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 200 200"><rect width="200" height="200" rx="24" fill="#f6eef2"/><circle cx="100" cy="86" r="38" fill="none" stroke="#b76e8f" stroke-width="8"/><text x="100" y="166" text-anchor="middle" font-family="Arial" font-size="22" fill="#8a4f69">SALON</text></svg>`

// StaticFileServer serves uploaded assets such as the salon logo from dir.
// Missing files get a placeholder logo so receipts always render.
func StaticFileServer(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := filepath.Clean("/" + r.URL.Path)
		path := filepath.Join(dir, rel)

		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			w.Header().Set("Cache-Control", "public, max-age=2592000")
			http.ServeFile(w, r, path)
			return
		}

		if !strings.HasSuffix(rel, ".svg") && !strings.HasSuffix(rel, ".png") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write([]byte(placeholderLogo))
	})
}
