// Package migrations embeds the schema of the statistics tables, used to
// provision development and test stores.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
