// Package templates holds the HTML views, embedded into the binary.
package templates

import "embed"

//go:embed layouts/*.tmpl partials/*.tmpl pages/*.tmpl
var FS embed.FS
