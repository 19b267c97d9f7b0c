package telemetry

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func testConfig() Config {
	return Config{
		ServiceName:    "quotes-api",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		SampleRate:     1.0,
	}
}

// initTelemetry initializes telemetry with the requested signals backed by
// discard exporters and registers shutdown as a test cleanup.
func initTelemetry(t *testing.T, enableTracing, enableMetrics bool) *Telemetry {
	t.Helper()

	cfg := testConfig()
	cfg.EnableTracing = enableTracing
	cfg.EnableMetrics = enableMetrics

	tel, err := Initialize(context.Background(), cfg,
		WithTraceExporter(NewNoopTraceExporter()),
		WithMetricExporter(NewNoopMetricExporter()),
	)
	if err != nil {
		t.Fatalf("failed to initialize telemetry: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	})

	return tel
}

// setupTracerProvider installs an in-memory tracer provider so tests can
// inspect recorded spans.
func setupTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	otel.SetTracerProvider(trace.NewTracerProvider(trace.WithSyncer(exp)))

	t.Cleanup(func() { otel.SetTracerProvider(nil) })

	return exp
}
