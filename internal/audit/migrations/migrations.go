// Package migrations embeds the golang-migrate SQL sources for the
// Postgres audit-log schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
