// Package schema holds the goose migrations for the messages store.
package schema

import "embed"

// FS contains every migration in this directory.
//
//go:embed *.sql
var FS embed.FS
