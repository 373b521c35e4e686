package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Stdout exports spans and metrics as JSON lines to a writer. Spans are
// written as they end; metrics are written on Shutdown.
type Stdout struct {
	tp   *sdktrace.TracerProvider
	mp   *sdkmetric.MeterProvider
	hook *Hook
}

// NewStdout creates stdout exporters tagged with the service name and
// version, and a Hook bound to them.
func NewStdout(w io.Writer, serviceName, version string) (*Stdout, error) {
	res := resource.NewSchemaless(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(traceExporter),
		sdktrace.WithResource(res),
	)

	metricExporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(time.Minute))),
		sdkmetric.WithResource(res),
	)

	h, err := NewHook(WithTracerProvider(tp), WithMeterProvider(mp))
	if err != nil {
		return nil, err
	}
	return &Stdout{tp: tp, mp: mp, hook: h}, nil
}

// Hook returns the hook to register on dispatchers.
func (s *Stdout) Hook() *Hook {
	return s.hook
}

// Shutdown flushes pending metrics and stops both providers.
func (s *Stdout) Shutdown(ctx context.Context) error {
	return errors.Join(s.tp.Shutdown(ctx), s.mp.Shutdown(ctx))
}
