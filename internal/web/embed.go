// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web embeds the browser UI served at the site root.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
)

//go:embed static
var staticFiles embed.FS

// StaticFS is the embedded UI file system with the "static/" prefix stripped.
var StaticFS fs.FS

func init() {
	var err error

	StaticFS, err = fs.Sub(staticFiles, "static")
	if err != nil {
		slog.Error("web: failed to create static FS", "err", err)
		panic(err)
	}
}
