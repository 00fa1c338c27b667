package node

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ksd-co/logicgraph-go/graph"
)

// Retry outcome statuses.
const (
	RetrySucceeded = "succeeded"
	RetryExhausted = "exhausted"
)

// RetryNode runs an inner operation with exponential backoff between
// attempts. Exhaustion is deliberately not an error: the node
// completes with {"status": "exhausted", "attempts": n} so a flaky
// dependency can never abort the surrounding graph on its own.
type RetryNode struct {
	id         string
	op         Operation
	maxRetries int

	initialDelay time.Duration
	multiplier   float64
}

// NewRetryNode wraps op with up to maxRetries additional attempts
// beyond the first. Default backoff is 100ms doubling per attempt.
func NewRetryNode(id string, op Operation, maxRetries int) *RetryNode {
	return &RetryNode{
		id:           id,
		op:           op,
		maxRetries:   maxRetries,
		initialDelay: 100 * time.Millisecond,
		multiplier:   2.0,
	}
}

// WithBackoff sets the initial delay and per-attempt multiplier.
func (n *RetryNode) WithBackoff(initialDelay time.Duration, multiplier float64) *RetryNode {
	n.initialDelay = initialDelay
	n.multiplier = multiplier
	return n
}

// ID implements graph.Node.
func (n *RetryNode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *RetryNode) Kind() graph.NodeKind { return graph.KindRetry }

// Run implements graph.Node. The inner operation is invoked at most
// maxRetries+1 times; a failed attempt waits initialDelay *
// multiplier^attempt before the next.
func (n *RetryNode) Run(ctx context.Context, c *graph.Context) (any, error) {
	// Jitter is disabled: the schedule is part of the node's contract
	// (total wait >= sum of the configured delays) and deterministic
	// timing keeps executions replayable.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = n.initialDelay
	bo.Multiplier = n.multiplier
	bo.RandomizationFactor = 0
	bo.MaxInterval = time.Hour
	bo.MaxElapsedTime = 0
	bo.Reset()

	attempts := 0
	for attempt := 0; attempt <= n.maxRetries; attempt++ {
		result, err := n.op.Invoke(ctx, c)
		attempts++
		if err == nil {
			return map[string]any{
				"status":   RetrySucceeded,
				"attempts": int64(attempts),
				"result":   result,
			}, nil
		}

		c.Set(n.id+"_last_error", err.Error())
		if attempt == n.maxRetries {
			break
		}

		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			return nil, &graph.Error{Code: graph.CodeCancelled, NodeID: n.id, Message: "retry cancelled", Cause: ctx.Err()}
		}
	}

	return map[string]any{"status": RetryExhausted, "attempts": int64(attempts)}, nil
}
