package httpapi

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var uiAssets embed.FS

// newUIHandler serves the embedded browser client without client caching.
func newUIHandler() http.Handler {
	root, err := fs.Sub(uiAssets, "static")
	if err != nil {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.FS(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
