package emit

import "context"

// Emitter receives observability events from workflow execution.
//
// Implementations must be thread-safe (events arrive concurrently from
// peer nodes of one wave), must not block execution, and must never
// fail it: a broken backend is the emitter's problem, not the
// workflow's.
type Emitter interface {
	// Emit delivers one event. It must not panic; internal errors are
	// swallowed or logged by the implementation.
	Emit(event Event)

	// Flush blocks until buffered events are delivered or ctx expires.
	// Unbuffered emitters return immediately.
	Flush(ctx context.Context) error
}
