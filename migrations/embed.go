// Package migrations embeds the PostgreSQL schema migrations.
package migrations

import "embed"

// FS holds the golang-migrate files of this directory.
//
//go:embed *.sql
var FS embed.FS
