package emit

import "context"

// NullEmitter discards every event. It is the executor's default when
// no emitter is configured.
type NullEmitter struct{}

// NewNullEmitter returns an emitter that drops everything.
func NewNullEmitter() *NullEmitter { return &NullEmitter{} }

// Emit implements Emitter.
func (*NullEmitter) Emit(Event) {}

// Flush implements Emitter.
func (*NullEmitter) Flush(context.Context) error { return nil }
