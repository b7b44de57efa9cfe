// Package web holds the dashboard's page templates and static assets.
package web

import "embed"

// Templates embeds the layouts, partials and pages.
//
//go:embed templates/**/*.html
var Templates embed.FS

// Static embeds the stylesheet served under /static/.
//
//go:embed static/**/*
var Static embed.FS
