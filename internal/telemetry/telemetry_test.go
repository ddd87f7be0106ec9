package telemetry_test

import (
	"context"
	"log/slog"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"github.com/pitchside/auctiond/internal/telemetry"
)

func TestNewNopProvider(t *testing.T) {
	p := telemetry.NewNopProvider()

	if p.TracerProvider == nil {
		t.Fatal("TracerProvider is nil")
	}
	if p.MeterProvider == nil {
		t.Fatal("MeterProvider is nil")
	}
	if p.LoggerProvider == nil {
		t.Fatal("LoggerProvider is nil")
	}
	if p.Logger == nil {
		t.Fatal("Logger is nil")
	}
}

func TestNopProvider_Shutdown(t *testing.T) {
	p := telemetry.NewNopProvider()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestLogWithTrace_NoSpan(t *testing.T) {
	got := telemetry.LogWithTrace(context.Background(), slog.Default())
	if got == nil {
		t.Fatal("LogWithTrace() returned nil")
	}
}

func TestLogWithTrace_WithSpan(t *testing.T) {
	p := telemetry.NewNopProvider()
	tracer := p.TracerProvider.Tracer("telemetry_test")
	ctx, span := tracer.Start(context.Background(), "lot-span")
	defer span.End()

	enriched := telemetry.LogWithTrace(ctx, slog.Default())
	if enriched == nil {
		t.Fatal("LogWithTrace() returned nil")
	}

	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.IsValid() && enriched == slog.Default() {
		t.Error("valid span context did not enrich the logger")
	}
}
