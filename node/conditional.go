package node

import (
	"context"

	"github.com/ksd-co/logicgraph-go/expr"
	"github.com/ksd-co/logicgraph-go/graph"
)

// ConditionalNode evaluates a condition and records which branch the
// execution should take. It writes the chosen branch id to
// graph.BranchTakenKey; downstream edges gate on that key (or on the
// condition directly) to route the flow.
type ConditionalNode struct {
	id         string
	source     string
	condition  expr.Node
	thenBranch string
	elseBranch string
}

// NewConditionalNode compiles the condition eagerly; malformed
// conditions fail with a Parse error.
func NewConditionalNode(id, condition string) (*ConditionalNode, error) {
	compiled, err := expr.Parse(condition)
	if err != nil {
		return nil, &graph.Error{Code: graph.CodeParse, NodeID: id, Message: err.Error(), Cause: err}
	}
	return &ConditionalNode{id: id, source: condition, condition: compiled}, nil
}

// WithBranches names the node ids recorded for the true and false
// outcomes.
func (n *ConditionalNode) WithBranches(thenBranch, elseBranch string) *ConditionalNode {
	n.thenBranch = thenBranch
	n.elseBranch = elseBranch
	return n
}

// ID implements graph.Node.
func (n *ConditionalNode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *ConditionalNode) Kind() graph.NodeKind { return graph.KindConditional }

// Run implements graph.Node.
func (n *ConditionalNode) Run(_ context.Context, c *graph.Context) (any, error) {
	ok, err := expr.EvalBool(n.condition, c)
	if err != nil {
		return nil, &graph.Error{Code: graph.CodeEval, NodeID: n.id, Message: err.Error(), Cause: err}
	}

	branch := n.elseBranch
	if ok {
		branch = n.thenBranch
	}
	if branch != "" {
		c.Set(graph.BranchTakenKey, branch)
	}
	return map[string]any{"condition": ok, "branch": branch}, nil
}
