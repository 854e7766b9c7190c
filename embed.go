package spacetraveling

import "embed"

// EmbeddedAssets contains static assets shipped with the app: feed.js, which
// turns the "load more" form into an in-place fetch.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
