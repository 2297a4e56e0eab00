// Package static holds files embedded into the binary.
package static

import _ "embed"

// IndexHTML is the landing page of the HTTP server.
//
//go:embed index.html
var IndexHTML string

// ReportTemplate is the text/template used to render plain-text reports.
//
//go:embed report.tmpl
var ReportTemplate string
