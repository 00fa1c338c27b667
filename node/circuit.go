package node

import (
	"context"

	"github.com/ksd-co/logicgraph-go/fault"
	"github.com/ksd-co/logicgraph-go/graph"
)

// Circuit-breaker node statuses.
const (
	CircuitExecuted = "executed"
	CircuitFailed   = "failed"
	CircuitRejected = "rejected"
)

// CircuitBreakerNode guards an operation with a shared circuit
// breaker. While the circuit is open the operation is not invoked at
// all: the node returns {"status": "rejected", "circuit_state":
// "open"} immediately. Outcomes of admitted calls feed the breaker,
// and like the other control-flow nodes a protected-op failure is a
// terminal value, not a graph abort.
type CircuitBreakerNode struct {
	id      string
	op      Operation
	breaker *fault.CircuitBreaker
}

// NewCircuitBreakerNode guards op with breaker.
func NewCircuitBreakerNode(id string, op Operation, breaker *fault.CircuitBreaker) *CircuitBreakerNode {
	return &CircuitBreakerNode{id: id, op: op, breaker: breaker}
}

// NewCircuitBreakerNodeWithThreshold is a convenience constructing an
// in-memory breaker named after the node.
func NewCircuitBreakerNodeWithThreshold(id string, op Operation, failureThreshold int) *CircuitBreakerNode {
	breaker := fault.NewCircuitBreaker(id, nil, fault.CircuitConfig{FailureThreshold: failureThreshold})
	return NewCircuitBreakerNode(id, op, breaker)
}

// Breaker exposes the underlying breaker for inspection.
func (n *CircuitBreakerNode) Breaker() *fault.CircuitBreaker { return n.breaker }

// ID implements graph.Node.
func (n *CircuitBreakerNode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *CircuitBreakerNode) Kind() graph.NodeKind { return graph.KindCircuitBreaker }

// Run implements graph.Node.
func (n *CircuitBreakerNode) Run(ctx context.Context, c *graph.Context) (any, error) {
	if !n.breaker.Allow(ctx) {
		return map[string]any{
			"status":        CircuitRejected,
			"circuit_state": n.breaker.State().String(),
		}, nil
	}

	result, err := n.op.Invoke(ctx, c)
	if err != nil {
		n.breaker.RecordFailure(ctx)
		return map[string]any{
			"status":        CircuitFailed,
			"circuit_state": n.breaker.State().String(),
			"error":         err.Error(),
		}, nil
	}

	n.breaker.RecordSuccess(ctx)
	return map[string]any{
		"status":        CircuitExecuted,
		"circuit_state": n.breaker.State().String(),
		"result":        result,
	}, nil
}
