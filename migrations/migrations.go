// Package migrations embeds the schema files applied by cmd/migrate.
package migrations

import "embed"

// FS holds every NNN_description.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
