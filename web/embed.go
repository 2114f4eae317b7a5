package web

import "embed"

// Templates holds the layout and page templates rendered by internal/view.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static holds the embedded assets served under /static/.
//
//go:embed static/**/*
var Static embed.FS
