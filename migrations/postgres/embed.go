// Package postgres embeds the SQL migrations shipped with the binary.
package postgres

import "embed"

//go:embed *.sql
var Files embed.FS
