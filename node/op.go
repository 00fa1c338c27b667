// Package node provides the node family executed by the graph engine:
// rule evaluation, external-call nodes (database, model, RPC), and the
// control-flow nodes (conditional, loop, retry, try/catch, circuit
// breaker).
//
// External collaborators are consumed through small interfaces defined
// here; the dbexec, model, and rpc packages provide implementations
// that satisfy them structurally.
package node

import (
	"context"

	"github.com/ksd-co/logicgraph-go/graph"
)

// Operation is a unit of work wrapped by the control-flow nodes
// (retry, try/catch, circuit breaker, loop bodies).
type Operation interface {
	// Name identifies the operation in results and errors.
	Name() string

	// Invoke performs the work against the graph context.
	Invoke(ctx context.Context, c *graph.Context) (any, error)
}

// OperationFunc adapts a function into an Operation.
type OperationFunc struct {
	OpName string
	Fn     func(ctx context.Context, c *graph.Context) (any, error)
}

// Name implements Operation.
func (o OperationFunc) Name() string { return o.OpName }

// Invoke implements Operation.
func (o OperationFunc) Invoke(ctx context.Context, c *graph.Context) (any, error) {
	return o.Fn(ctx, c)
}

// NodeOperation wraps a Node so it can serve as an inner operation.
func NodeOperation(n graph.Node) Operation {
	return OperationFunc{
		OpName: n.ID(),
		Fn: func(ctx context.Context, c *graph.Context) (any, error) {
			return n.Run(ctx, c)
		},
	}
}
