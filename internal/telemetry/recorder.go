package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Recorder keeps spans and metrics in memory. The CLI uses it to print a
// call report; tests use it to inspect instrumentation.
type Recorder struct {
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	tp     *sdktrace.TracerProvider
	mp     *sdkmetric.MeterProvider
	hook   *Hook
}

// NewRecorder creates in-memory providers and a Hook bound to them.
func NewRecorder() (*Recorder, error) {
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	h, err := NewHook(WithTracerProvider(tp), WithMeterProvider(mp))
	if err != nil {
		return nil, err
	}
	return &Recorder{spans: spans, reader: reader, tp: tp, mp: mp, hook: h}, nil
}

// Hook returns the hook to register on dispatchers.
func (r *Recorder) Hook() *Hook {
	return r.hook
}

// Spans returns the finished spans in end order.
func (r *Recorder) Spans() []sdktrace.ReadOnlySpan {
	return r.spans.Ended()
}

// Collect gathers the current metric values.
func (r *Recorder) Collect(ctx context.Context) (metricdata.ResourceMetrics, error) {
	var rm metricdata.ResourceMetrics
	if err := r.reader.Collect(ctx, &rm); err != nil {
		return rm, fmt.Errorf("collect metrics: %w", err)
	}
	return rm, nil
}

// CallCounts sums the persona.calls counter per method.
func (r *Recorder) CallCounts(ctx context.Context) (map[string]int64, error) {
	rm, err := r.Collect(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != MetricCalls {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				method, _ := dp.Attributes.Value(AttrMethod)
				counts[method.AsString()] += dp.Value
			}
		}
	}
	return counts, nil
}

// WriteReport prints one line per finished span followed by call counts.
func (r *Recorder) WriteReport(ctx context.Context, w io.Writer) error {
	for _, s := range r.Spans() {
		indent := ""
		for _, kv := range s.Attributes() {
			if string(kv.Key) == AttrDepth {
				for i := int64(1); i < kv.Value.AsInt64(); i++ {
					indent += "  "
				}
			}
		}
		status := s.Status().Code.String()
		fmt.Fprintf(w, "%s%s %s %s\n", indent, s.Name(), status, s.EndTime().Sub(s.StartTime()))
	}

	counts, err := r.CallCounts(ctx)
	if err != nil {
		return err
	}
	methods := make([]string, 0, len(counts))
	for m := range counts {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	for _, m := range methods {
		fmt.Fprintf(w, "calls %s=%d\n", m, counts[m])
	}
	return nil
}

// Shutdown flushes and stops both providers.
func (r *Recorder) Shutdown(ctx context.Context) error {
	return errors.Join(r.tp.Shutdown(ctx), r.mp.Shutdown(ctx))
}
