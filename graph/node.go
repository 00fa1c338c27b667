package graph

import "context"

// NodeKind tags a node with its role in a graph definition. The set is
// closed: document loading rejects anything else with a Config error.
type NodeKind string

const (
	KindRule           NodeKind = "Rule"
	KindDB             NodeKind = "DB"
	KindAI             NodeKind = "AI"
	KindGrpc           NodeKind = "Grpc"
	KindConditional    NodeKind = "Conditional"
	KindLoop           NodeKind = "Loop"
	KindRetry          NodeKind = "Retry"
	KindTryCatch       NodeKind = "TryCatch"
	KindCircuitBreaker NodeKind = "CircuitBreaker"
	KindCustom         NodeKind = "Custom"
)

// ValidKind reports whether k belongs to the closed kind set.
func ValidKind(k NodeKind) bool {
	switch k {
	case KindRule, KindDB, KindAI, KindGrpc, KindConditional, KindLoop,
		KindRetry, KindTryCatch, KindCircuitBreaker, KindCustom:
		return true
	}
	return false
}

// Node is the polymorphic unit of work the executor dispatches.
//
// Implementations must be stateless with respect to the Context beyond
// their id: a node registered once may serve many graph executions.
// Run receives the execution's cancellation context and the graph's
// Context; on success the executor merges the returned value under
// ResultKey(id) in addition to any direct writes Run performed.
type Node interface {
	// ID returns the node's unique, non-empty identifier.
	ID() string

	// Kind returns the node's kind tag.
	Kind() NodeKind

	// Run executes the node.
	Run(ctx context.Context, c *Context) (any, error)
}

// InputDeclarer is implemented by nodes whose output is a pure function
// of a known context slice. The executor fingerprints declared inputs
// to consult the result cache; nodes without declared inputs are never
// cached.
type InputDeclarer interface {
	// InputKeys returns the context keys the node's result depends on.
	InputKeys() []string
}

// NodeFunc adapts a function into a Node of kind Custom.
type NodeFunc struct {
	NodeID string
	Fn     func(ctx context.Context, c *Context) (any, error)
}

// ID implements Node.
func (n *NodeFunc) ID() string { return n.NodeID }

// Kind implements Node.
func (n *NodeFunc) Kind() NodeKind { return KindCustom }

// Run implements Node.
func (n *NodeFunc) Run(ctx context.Context, c *Context) (any, error) {
	return n.Fn(ctx, c)
}
