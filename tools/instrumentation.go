package tools

import "go.opentelemetry.io/otel"

const scopeName = "github.com/richinex/anko/tools"

var tracer = otel.Tracer(scopeName)
