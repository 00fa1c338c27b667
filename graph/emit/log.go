package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// LogEmitter writes events to a writer, either as human-readable text
// or as JSON lines.
//
// Text mode:
//
//	[node_start] run=run-001 wave=0 node=check_inventory
//
// JSON mode emits one Event object per line, suitable for ingestion.
type LogEmitter struct {
	mu       sync.Mutex
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter. Set jsonMode for JSON-lines
// output.
func NewLogEmitter(w io.Writer, jsonMode bool) *LogEmitter {
	return &LogEmitter{writer: w, jsonMode: jsonMode}
}

// Emit implements Emitter. Write errors are discarded: observability
// must never fail the workflow.
func (l *LogEmitter) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.jsonMode {
		data, err := json.Marshal(event)
		if err != nil {
			return
		}
		_, _ = l.writer.Write(append(data, '\n'))
		return
	}

	line := fmt.Sprintf("[%s] run=%s wave=%d", event.Msg, event.RunID, event.Wave)
	if event.NodeID != "" {
		line += " node=" + event.NodeID
	}
	for k, v := range event.Meta {
		line += fmt.Sprintf(" %s=%v", k, v)
	}
	_, _ = fmt.Fprintln(l.writer, line)
}

// Flush implements Emitter. LogEmitter is unbuffered.
func (l *LogEmitter) Flush(context.Context) error { return nil }
