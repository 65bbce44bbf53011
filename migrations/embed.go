// Package migrations holds the SQL schema migrations of the service.
package migrations

import "embed"

// FS contains every *.sql migration file.
//
//go:embed *.sql
var FS embed.FS
