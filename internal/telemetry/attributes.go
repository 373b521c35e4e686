// Package telemetry instruments dispatcher calls with OpenTelemetry spans
// and metrics.
package telemetry

// Attribute keys recorded on spans and metrics.
const (
	AttrDispatcherID = "persona.dispatcher.id"
	AttrMethod       = "persona.method"
	AttrRole         = "persona.role"
	AttrHint         = "persona.hint"
	AttrCaller       = "persona.caller"
	AttrDepth        = "persona.depth"
	AttrStatus       = "persona.status"
)

// Metric names.
const (
	MetricCalls    = "persona.calls"
	MetricErrors   = "persona.call.errors"
	MetricDuration = "persona.call.duration"
)

// InstrumentationName identifies this package to tracer and meter providers.
const InstrumentationName = "github.com/dshills/persona/internal/telemetry"
