package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSessionSpan_RecordsTrigger(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartSessionSpan(context.Background(), "grafana_alert")
	if CorrelationID(ctx) == "" {
		t.Error("expected a correlation id inside the session span")
	}
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if got := ended[0].Name(); got != "remediation session" {
		t.Errorf("span name = %q, want %q", got, "remediation session")
	}

	want := attribute.String("remedian.trigger", "grafana_alert")
	var found bool
	for _, attr := range ended[0].Attributes() {
		if attr == want {
			found = true
		}
	}
	if !found {
		t.Errorf("trigger attribute missing from %v", ended[0].Attributes())
	}
}
