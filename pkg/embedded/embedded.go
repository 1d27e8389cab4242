// Package embedded provides embedded static assets for the application.
package embedded

import (
	"embed"
	"io/fs"
)

// Files contains all files embedded in the Go binary:
//   - templates/ - html/template pages rendered by the web handlers
//   - static/ - script and stylesheet served under /static/
//
//go:embed templates static
var Files embed.FS

// Templates returns the page templates
func Templates() fs.FS {
	sub, err := fs.Sub(Files, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Static returns the static assets
func Static() fs.FS {
	sub, err := fs.Sub(Files, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
