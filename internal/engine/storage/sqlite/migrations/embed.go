package migrations

import "embed"

// FS contains embedded SQLite migrations for the engine game store.
//
//go:embed *.sql
var FS embed.FS
