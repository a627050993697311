// Package migrations embeds the SQL schema migrations shipped with the
// binaries so deployments never depend on files on disk.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
