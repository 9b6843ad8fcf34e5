// Package web embeds the dashboard page template and its stylesheet.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:assets
var assetsFS embed.FS

// Assets returns the embedded assets with assets/ as the root, so files are
// accessed as "dashboard.html" and "static/style.css".
func Assets() (fs.FS, error) {
	return fs.Sub(assetsFS, "assets")
}
