package node

import (
	"context"
	"fmt"

	"github.com/ksd-co/logicgraph-go/expr"
	"github.com/ksd-co/logicgraph-go/graph"
)

// Loop termination statuses.
const (
	LoopCompleted     = "completed"
	LoopMaxIterations = "max_iterations_reached"
)

type loopVariant int

const (
	loopForeach loopVariant = iota
	loopWhile
)

// LoopNode iterates either over a context collection (foreach) or
// while a condition holds (while, bounded by a mandatory iteration
// cap). Both variants optionally run a body operation per iteration
// and emit {"iterations": n, "status": s}.
type LoopNode struct {
	id      string
	variant loopVariant

	// foreach
	collectionKey string

	// while
	condition     expr.Node
	maxIterations int

	body Operation
}

// NewForeachLoop iterates the array stored at collectionKey, exposing
// each element as graph.CurrentItemKey and its index as
// graph.CurrentIndexKey. The loop terminates naturally at the end of
// the array.
func NewForeachLoop(id, collectionKey string) *LoopNode {
	return &LoopNode{id: id, variant: loopForeach, collectionKey: collectionKey}
}

// NewWhileLoop repeats while the condition evaluates true, bounded by
// maxIterations. Reaching the cap is not an error: the loop completes
// with status max_iterations_reached.
func NewWhileLoop(id, condition string, maxIterations int) (*LoopNode, error) {
	compiled, err := expr.Parse(condition)
	if err != nil {
		return nil, &graph.Error{Code: graph.CodeParse, NodeID: id, Message: err.Error(), Cause: err}
	}
	return &LoopNode{id: id, variant: loopWhile, condition: compiled, maxIterations: maxIterations}, nil
}

// WithBody runs op once per iteration.
func (n *LoopNode) WithBody(op Operation) *LoopNode {
	n.body = op
	return n
}

// ID implements graph.Node.
func (n *LoopNode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *LoopNode) Kind() graph.NodeKind { return graph.KindLoop }

// Run implements graph.Node.
func (n *LoopNode) Run(ctx context.Context, c *graph.Context) (any, error) {
	switch n.variant {
	case loopWhile:
		return n.runWhile(ctx, c)
	default:
		return n.runForeach(ctx, c)
	}
}

func (n *LoopNode) runForeach(ctx context.Context, c *graph.Context) (any, error) {
	raw, ok := c.Get(n.collectionKey)
	if !ok {
		return nil, &graph.Error{
			Code:    graph.CodeEval,
			NodeID:  n.id,
			Message: fmt.Sprintf("collection %q not found in context", n.collectionKey),
		}
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &graph.Error{
			Code:    graph.CodeEval,
			NodeID:  n.id,
			Message: fmt.Sprintf("context key %q holds %T, want an array", n.collectionKey, raw),
		}
	}

	iterations := 0
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, &graph.Error{Code: graph.CodeCancelled, NodeID: n.id, Message: "loop cancelled", Cause: err}
		}
		c.Set(graph.CurrentItemKey, item)
		c.Set(graph.CurrentIndexKey, int64(i))
		if err := n.runBody(ctx, c); err != nil {
			return nil, err
		}
		iterations++
	}
	return map[string]any{"iterations": int64(iterations), "status": LoopCompleted}, nil
}

func (n *LoopNode) runWhile(ctx context.Context, c *graph.Context) (any, error) {
	iterations := 0
	status := LoopCompleted
	for {
		if err := ctx.Err(); err != nil {
			return nil, &graph.Error{Code: graph.CodeCancelled, NodeID: n.id, Message: "loop cancelled", Cause: err}
		}
		ok, err := expr.EvalBool(n.condition, c)
		if err != nil {
			return nil, &graph.Error{Code: graph.CodeEval, NodeID: n.id, Message: err.Error(), Cause: err}
		}
		if !ok {
			break
		}
		if iterations >= n.maxIterations {
			status = LoopMaxIterations
			break
		}
		c.Set(graph.CurrentIndexKey, int64(iterations))
		if err := n.runBody(ctx, c); err != nil {
			return nil, err
		}
		iterations++
	}
	return map[string]any{"iterations": int64(iterations), "status": status}, nil
}

func (n *LoopNode) runBody(ctx context.Context, c *graph.Context) error {
	if n.body == nil {
		return nil
	}
	if _, err := n.body.Invoke(ctx, c); err != nil {
		return &graph.Error{
			Code:    graph.CodeEval,
			NodeID:  n.id,
			Message: fmt.Sprintf("loop body %q failed: %v", n.body.Name(), err),
			Cause:   err,
		}
	}
	return nil
}
