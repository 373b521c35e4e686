package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/persona/internal/dispatcher/hook"
)

// Hook records one span per dispatcher call and counts calls, errors and
// durations. Nested calls become child spans of the call that made them.
// A single Hook may be shared by dispatchers on different goroutines.
type Hook struct {
	tracer trace.Tracer

	calls    metric.Int64Counter
	errors   metric.Int64Counter
	duration metric.Float64Histogram

	mu   sync.Mutex
	open map[string][]openSpan
}

type openSpan struct {
	inv  *hook.Invocation
	ctx  context.Context
	span trace.Span
}

var _ hook.CombinedHook = (*Hook)(nil)

// Option configures a Hook.
type Option func(*options)

type options struct {
	tp trace.TracerProvider
	mp metric.MeterProvider
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// NewHook creates a telemetry hook. Without options it uses the global
// OpenTelemetry providers.
func NewHook(opts ...Option) (*Hook, error) {
	o := options{tp: otel.GetTracerProvider(), mp: otel.GetMeterProvider()}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.mp.Meter(InstrumentationName)
	calls, err := meter.Int64Counter(MetricCalls,
		metric.WithDescription("Dispatcher calls by method, role and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s counter: %w", MetricCalls, err)
	}
	errs, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Failed dispatcher calls by method"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s counter: %w", MetricErrors, err)
	}
	duration, err := meter.Float64Histogram(MetricDuration,
		metric.WithDescription("Dispatcher call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s histogram: %w", MetricDuration, err)
	}

	return &Hook{
		tracer:   o.tp.Tracer(InstrumentationName),
		calls:    calls,
		errors:   errs,
		duration: duration,
		open:     make(map[string][]openSpan),
	}, nil
}

// Name implements hook.Hook.
func (h *Hook) Name() string { return "telemetry" }

// Priority implements hook.Hook.
func (h *Hook) Priority() int { return hook.PriorityTelemetry }

// PreCall starts a span for the call.
func (h *Hook) PreCall(inv *hook.Invocation) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	parent := context.Background()
	if stack := h.open[inv.Dispatcher]; len(stack) > 0 {
		parent = stack[len(stack)-1].ctx
	}
	ctx, span := h.tracer.Start(parent, inv.Method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrDispatcherID, inv.Dispatcher),
			attribute.String(AttrMethod, inv.Method),
			attribute.String(AttrCaller, inv.Caller.Kind.String()),
			attribute.Int(AttrDepth, inv.Depth),
		),
	)
	if inv.Hint != "" {
		span.SetAttributes(attribute.String(AttrHint, inv.Hint))
	}
	h.open[inv.Dispatcher] = append(h.open[inv.Dispatcher], openSpan{inv: inv, ctx: ctx, span: span})
	return true
}

// PostCall ends the call's span and records metrics. Calls rejected before
// PreCall ran (for example by the depth limit) get a span of their own.
func (h *Hook) PostCall(inv *hook.Invocation, out *hook.Outcome) {
	ctx, span := h.pop(inv)
	if span == nil {
		ctx, span = h.tracer.Start(context.Background(), inv.Method,
			trace.WithTimestamp(time.Now().Add(-out.Duration)),
			trace.WithAttributes(
				attribute.String(AttrDispatcherID, inv.Dispatcher),
				attribute.String(AttrMethod, inv.Method),
			),
		)
	}

	status := "ok"
	if out.Err != nil {
		status = "error"
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	if out.Role != "" {
		span.SetAttributes(attribute.String(AttrRole, out.Role))
	}
	span.End()

	attrs := metric.WithAttributes(
		attribute.String(AttrMethod, inv.Method),
		attribute.String(AttrRole, out.Role),
		attribute.String(AttrStatus, status),
	)
	h.calls.Add(ctx, 1, attrs)
	if out.Err != nil {
		h.errors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrMethod, inv.Method)))
	}
	h.duration.Record(ctx, out.Duration.Seconds(), attrs)
}

// pop removes the span opened for inv. Spans above it that were never
// closed are ended first.
func (h *Hook) pop(inv *hook.Invocation) (context.Context, trace.Span) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stack := h.open[inv.Dispatcher]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].inv != inv {
			continue
		}
		for _, orphan := range stack[i+1:] {
			orphan.span.End()
		}
		entry := stack[i]
		if i == 0 {
			delete(h.open, inv.Dispatcher)
		} else {
			h.open[inv.Dispatcher] = stack[:i]
		}
		return entry.ctx, entry.span
	}
	return context.Background(), nil
}
