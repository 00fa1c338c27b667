package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter converts events into OpenTelemetry spans. Each event
// becomes a zero-duration span named after its Msg, carrying run id,
// node id, wave, and the Meta fields as attributes. Error events set
// span status to Error.
//
// Wire it to a real provider:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	emitter := emit.NewOTelEmitter(tp.Tracer("logicgraph"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter wraps a tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit implements Emitter.
func (o *OTelEmitter) Emit(event Event) {
	if o.tracer == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("logicgraph.run_id", event.RunID),
		attribute.Int("logicgraph.wave", event.Wave),
	}
	if event.NodeID != "" {
		attrs = append(attrs, attribute.String("logicgraph.node_id", event.NodeID))
	}
	for k, v := range event.Meta {
		attrs = append(attrs, attribute.String("logicgraph.meta."+k, fmt.Sprintf("%v", v)))
	}

	_, span := o.tracer.Start(context.Background(), event.Msg,
		trace.WithTimestamp(event.Time),
		trace.WithAttributes(attrs...),
	)
	if event.Msg == MsgNodeError || event.Msg == MsgEdgeRuleError {
		if msg, ok := event.Meta["error"].(string); ok {
			span.SetStatus(codes.Error, msg)
		} else {
			span.SetStatus(codes.Error, event.Msg)
		}
	}
	span.End(trace.WithTimestamp(event.Time))
}

// Flush implements Emitter. Span export is the provider's concern.
func (o *OTelEmitter) Flush(context.Context) error { return nil }
