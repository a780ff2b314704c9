// Package migrations embeds the goose schema migrations for each supported
// store. Each dialect lives in its own directory.
package migrations

import "embed"

//go:embed postgres/*.sql sqlite/*.sql
var Migrations embed.FS

// Directories inside Migrations, one per store driver.
const (
	PostgresDir = "postgres"
	SQLiteDir   = "sqlite"
)
