package node

import (
	"context"

	"github.com/ksd-co/logicgraph-go/graph"
)

// Try/catch outcome statuses.
const (
	TrySucceeded = "succeeded"
	TryRecovered = "recovered"
	TryFailed    = "failed"
)

// TryCatchNode runs a guarded operation. On failure the error message
// is written to graph.ErrorKey and the catch operation (when present)
// runs; the finally operation runs on every path. The node itself
// always completes with {"status": ...} so the graph can route on the
// outcome instead of aborting.
type TryCatchNode struct {
	id        string
	tryOp     Operation
	catchOp   Operation
	finallyOp Operation
}

// NewTryCatchNode guards tryOp.
func NewTryCatchNode(id string, tryOp Operation) *TryCatchNode {
	return &TryCatchNode{id: id, tryOp: tryOp}
}

// WithCatch installs the recovery operation.
func (n *TryCatchNode) WithCatch(op Operation) *TryCatchNode {
	n.catchOp = op
	return n
}

// WithFinally installs the operation that runs on every path.
func (n *TryCatchNode) WithFinally(op Operation) *TryCatchNode {
	n.finallyOp = op
	return n
}

// ID implements graph.Node.
func (n *TryCatchNode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *TryCatchNode) Kind() graph.NodeKind { return graph.KindTryCatch }

// Run implements graph.Node.
func (n *TryCatchNode) Run(ctx context.Context, c *graph.Context) (any, error) {
	status := TrySucceeded

	_, err := n.tryOp.Invoke(ctx, c)
	if err != nil {
		c.Set(graph.ErrorKey, err.Error())
		status = TryFailed
		if n.catchOp != nil {
			if _, catchErr := n.catchOp.Invoke(ctx, c); catchErr == nil {
				status = TryRecovered
			}
		}
	}

	if n.finallyOp != nil {
		// The finally path is cleanup; its failure must not change
		// the recorded outcome.
		_, _ = n.finallyOp.Invoke(ctx, c)
	}

	return map[string]any{"status": status}, nil
}
