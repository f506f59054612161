// Package migrations carries the SQL schema applied by cmd/migrate.
package migrations

import "embed"

//go:embed sql seeds
var FS embed.FS

const (
	// SQLDir is the embedded directory holding *.up.sql / *.down.sql pairs.
	SQLDir = "sql"
	// SeedsDir holds idempotent seed files for local development.
	SeedsDir = "seeds"
)
