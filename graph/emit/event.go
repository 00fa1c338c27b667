// Package emit provides event emission and observability for graph
// execution. The Executor emits one Event per significant transition;
// emitters forward them to logs, traces, or test recorders.
package emit

import "time"

// Event messages emitted by the executor.
const (
	MsgNodeStart       = "node_start"
	MsgNodeEnd         = "node_end"
	MsgNodeSkipped     = "node_skipped"
	MsgNodeError       = "node_error"
	MsgCacheHit        = "cache_hit"
	MsgFallbackInvoked = "fallback_invoked"
	MsgEdgeRuleError   = "edge_rule_error"
)

// Event is one observability record from a graph execution.
type Event struct {
	// RunID identifies the execution the event belongs to.
	RunID string `json:"run_id"`

	// NodeID is the node the event concerns; empty for run-level events.
	NodeID string `json:"node_id,omitempty"`

	// Wave is the dispatch wave the node ran in, starting at 0.
	Wave int `json:"wave"`

	// Msg names the transition (see the Msg* constants).
	Msg string `json:"msg"`

	// Meta carries message-specific detail such as error text, the
	// skipped edge, or the cached fingerprint.
	Meta map[string]any `json:"meta,omitempty"`

	// Time is when the event was created.
	Time time.Time `json:"time"`
}
