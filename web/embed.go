package web

import "embed"

// Content holds the browser viewer: a canvas client for the scene stream.
//
//go:embed index.html app.js styles.css
var Content embed.FS
