// Package observe provides application-wide observability primitives for
// remedian: OpenTelemetry metrics, tracing, and HTTP middleware that ties
// them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sretools/remedian/pkg/provider/llm"
)

// meterName is the instrumentation scope name used for all remedian metrics.
const meterName = "github.com/sretools/remedian"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// Sessions counts finished remediation sessions. Use with attribute:
	//   attribute.String("outcome", "resolved"|"unresolved")
	Sessions metric.Int64Counter

	// SessionTurns tracks how many model completions a session took.
	SessionTurns metric.Int64Histogram

	// ModelRequests counts completion calls. Use with attributes:
	//   attribute.String("model", ...), attribute.String("status", ...)
	ModelRequests metric.Int64Counter

	// ModelTokens counts tokens billed by the backend. Use with attributes:
	//   attribute.String("model", ...), attribute.String("kind", "prompt"|"completion")
	ModelTokens metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// ActiveSessions tracks the number of sessions currently reasoning.
	ActiveSessions metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// turnBuckets defines histogram bucket boundaries for session turn counts.
var turnBuckets = []float64{1, 2, 3, 5, 8, 13, 21, 34}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Sessions, err = m.Int64Counter("remedian.sessions",
		metric.WithDescription("Total finished remediation sessions by outcome."),
	); err != nil {
		return nil, err
	}
	if met.SessionTurns, err = m.Int64Histogram("remedian.session.turns",
		metric.WithDescription("Model completions per session."),
		metric.WithExplicitBucketBoundaries(turnBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ModelRequests, err = m.Int64Counter("remedian.model.requests",
		metric.WithDescription("Total model completion requests by model and status."),
	); err != nil {
		return nil, err
	}
	if met.ModelTokens, err = m.Int64Counter("remedian.model.tokens",
		metric.WithDescription("Total tokens billed by model and kind."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("remedian.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveSessions, err = m.Int64UpDownCounter("remedian.active_sessions",
		metric.WithDescription("Number of sessions currently reasoning."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("remedian.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordSession records one finished session. Satisfies the session
// package's Recorder interface.
func (m *Metrics) RecordSession(ctx context.Context, resolved bool, turns int) {
	outcome := "unresolved"
	if resolved {
		outcome = "resolved"
	}
	m.Sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.SessionTurns.Record(ctx, int64(turns))
}

// RecordModelCall records one completion request. Satisfies the gateway
// package's Recorder interface.
func (m *Metrics) RecordModelCall(ctx context.Context, model, status string, usage llm.Usage) {
	m.ModelRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", status),
	))
	if usage.PromptTokens > 0 {
		m.ModelTokens.Add(ctx, int64(usage.PromptTokens), metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("kind", "prompt"),
		))
	}
	if usage.CompletionTokens > 0 {
		m.ModelTokens.Add(ctx, int64(usage.CompletionTokens), metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("kind", "completion"),
		))
	}
}

// RecordToolCall records one tool invocation. Satisfies the toolbox
// package's Recorder interface.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	))
}
