package observability

import (
	"context"

	"github.com/learnhub/purchase-service/internal/infrastructure/observability"
)

// Setup initializes logging, metrics and tracing. The returned func
// flushes the tracer provider and must be called on shutdown.
func Setup(serviceName string) func(context.Context) error {
	observability.InitLogger()
	observability.InitMetrics()
	return observability.InitTracing(serviceName)
}
