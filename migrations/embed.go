// Package migrations provides embedded migration SQL for the audit store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
