package llm

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/richinex/anko/llm"

var tracer = otel.Tracer(scopeName)

// tracedHTTPClient returns an http.Client whose requests are traced.
func tracedHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}
