// Package migrations embeds and applies the Postgres schema migrations.
package migrations

import "embed"

// FS contains the SQL migration files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
