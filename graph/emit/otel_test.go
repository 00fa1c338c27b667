package emit

import (
	"context"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorder(t *testing.T) (*OTelEmitter, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOTelEmitter(tp.Tracer("logicgraph-test")), recorder
}

func TestOTelEmitter_SpanPerEvent(t *testing.T) {
	emitter, recorder := newRecorder(t)

	emitter.Emit(Event{
		RunID:  "run-001",
		NodeID: "check",
		Wave:   0,
		Msg:    MsgNodeStart,
		Time:   time.Now(),
	})
	emitter.Emit(Event{
		RunID: "run-001",
		Wave:  1,
		Msg:   MsgCacheHit,
		Time:  time.Now(),
	})

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Name() != MsgNodeStart {
		t.Errorf("span name = %q", spans[0].Name())
	}

	found := false
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "logicgraph.node_id" && attr.Value.AsString() == "check" {
			found = true
		}
	}
	if !found {
		t.Error("node_id attribute missing from span")
	}
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	emitter, recorder := newRecorder(t)

	emitter.Emit(Event{
		RunID:  "run-001",
		NodeID: "boom",
		Msg:    MsgNodeError,
		Meta:   map[string]any{"error": "kaput"},
		Time:   time.Now(),
	})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans", len(spans))
	}
	if spans[0].Status().Description != "kaput" {
		t.Errorf("span status = %+v", spans[0].Status())
	}
}

func TestOTelEmitter_NilTracer(t *testing.T) {
	e := NewOTelEmitter(nil)
	e.Emit(Event{Msg: MsgNodeStart}) // must not panic
	if err := e.Flush(context.Background()); err != nil {
		t.Errorf("Flush: %v", err)
	}
}
