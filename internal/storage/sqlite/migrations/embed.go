package migrations

import "embed"

// FS contains embedded SQLite migrations for replay storage.
//
//go:embed *.sql
var FS embed.FS
