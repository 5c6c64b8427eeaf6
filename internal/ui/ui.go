// Package ui serves the built-in usage dashboard: a single embedded HTML
// page that reads the reporting and catalog endpoints client-side.
package ui

import (
	"embed"
	"net/http"
	"os"
)

//go:embed index.html
var content embed.FS

const devSourcePath = "internal/ui/index.html"

// Handler serves the dashboard page. With MOREL_DEV=1 the page is re-read
// from disk on every request so edits show up without a rebuild.
func Handler() http.Handler {
	dev := os.Getenv("MOREL_DEV") == "1"
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			page []byte
			err  error
		)
		if dev {
			page, err = os.ReadFile(devSourcePath)
			w.Header().Set("Cache-Control", "no-cache")
		} else {
			page, err = content.ReadFile("index.html")
		}
		if err != nil {
			http.Error(w, "dashboard unavailable: "+err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(page)
	})
}
