// Package migrations embeds the LIMS schema scripts applied by
// "lims-server migrate up".
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
