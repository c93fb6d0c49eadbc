package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{Enabled: false})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("provider = %T, want sdk provider", otel.GetTracerProvider())
	}

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if !trace.SpanContextFromContext(trace.ContextWithSpan(context.Background(), span)).IsValid() {
		t.Fatal("disabled tracing should still mint span ids")
	}
	if len(otel.GetTextMapPropagator().Fields()) == 0 {
		t.Fatal("propagator not installed")
	}
}

func TestInit_EnabledWithoutEndpoint(t *testing.T) {
	if _, err := Init(context.Background(), Options{Enabled: true}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestServiceName(t *testing.T) {
	tests := map[Options]string{
		{Service: "staticrouter", Component: "server"}: "staticrouter.server",
		{Service: "staticrouter"}:                      "staticrouter",
		{Component: "server"}:                          "server",
	}
	for o, want := range tests {
		if got := serviceName(o); got != want {
			t.Errorf("serviceName(%+v) = %q, want %q", o, got, want)
		}
	}
}

func TestClampSample(t *testing.T) {
	for in, want := range map[float64]float64{-1: 0, 0: 0, 0.25: 0.25, 1: 1, 7: 1} {
		if got := clampSample(in); got != want {
			t.Errorf("clampSample(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestUserAgent(t *testing.T) {
	if got := userAgent(Options{Service: "staticrouter", Component: "server", Version: "1.2.0"}); got != "staticrouter.server/1.2.0" {
		t.Errorf("userAgent = %q", got)
	}
	if got := userAgent(Options{Service: "staticrouter"}); got != "staticrouter" {
		t.Errorf("userAgent without version = %q", got)
	}
}
