package observe

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/sretools/remedian/pkg/provider/llm"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordSession(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordSession(ctx, true, 4)
	m.RecordSession(ctx, false, 25)

	rm := collect(t, reader)
	met := findMetric(rm, "remedian.sessions")
	if met == nil {
		t.Fatal("remedian.sessions not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("remedian.sessions is not a sum: %T", met.Data)
	}
	// One data point per outcome attribute.
	if len(sum.DataPoints) != 2 {
		t.Errorf("expected 2 data points, got %d", len(sum.DataPoints))
	}

	turns := findMetric(rm, "remedian.session.turns")
	if turns == nil {
		t.Fatal("remedian.session.turns not found")
	}
	hist, ok := turns.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("remedian.session.turns is not a histogram: %T", turns.Data)
	}
	if len(hist.DataPoints) == 0 || hist.DataPoints[0].Count != 2 {
		t.Errorf("unexpected turn histogram: %+v", hist.DataPoints)
	}
}

func TestRecordModelCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordModelCall(ctx, "gpt-4o", "ok", llm.Usage{PromptTokens: 120, CompletionTokens: 30})
	m.RecordModelCall(ctx, "gpt-4o", "rate_limited", llm.Usage{})

	rm := collect(t, reader)
	requests := findMetric(rm, "remedian.model.requests")
	if requests == nil {
		t.Fatal("remedian.model.requests not found")
	}
	tokens := findMetric(rm, "remedian.model.tokens")
	if tokens == nil {
		t.Fatal("remedian.model.tokens not found")
	}
	sum, ok := tokens.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("remedian.model.tokens is not a sum: %T", tokens.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 150 {
		t.Errorf("expected 150 tokens recorded, got %d", total)
	}
}

func TestRecordToolCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordToolCall(ctx, "list_pods_in_namespace", "ok")
	m.RecordToolCall(ctx, "delete_pod", "tool_error")

	rm := collect(t, reader)
	met := findMetric(rm, "remedian.tool.calls")
	if met == nil {
		t.Fatal("remedian.tool.calls not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("remedian.tool.calls is not a sum: %T", met.Data)
	}
	if len(sum.DataPoints) != 2 {
		t.Errorf("expected 2 data points, got %d", len(sum.DataPoints))
	}
}
