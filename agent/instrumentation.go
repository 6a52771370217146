package agent

import "go.opentelemetry.io/otel"

const scopeName = "github.com/richinex/anko/agent"

var tracer = otel.Tracer(scopeName)
