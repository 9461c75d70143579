// Package web provides the embedded public site assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed public
var publicFS embed.FS

// Public returns the embedded public directory with the path prefix
// stripped (files at root, not public/).
func Public() fs.FS {
	sub, err := fs.Sub(publicFS, "public")
	if err != nil {
		panic(err)
	}
	return sub
}

// IndexHTML returns the embedded landing page.
func IndexHTML() []byte {
	data, err := publicFS.ReadFile("public/index.html")
	if err != nil {
		return nil
	}
	return data
}
