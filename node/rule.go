package node

import (
	"context"

	"github.com/ksd-co/logicgraph-go/expr"
	"github.com/ksd-co/logicgraph-go/graph"
)

// RuleNode evaluates a fixed expression against the context and
// returns its value. The expression's identifiers double as the
// node's declared cache inputs.
type RuleNode struct {
	id       string
	source   string
	compiled expr.Node
	inputs   []string
}

// NewRuleNode compiles the expression eagerly so malformed rules fail
// at construction with a Parse error instead of at run time.
func NewRuleNode(id, expression string) (*RuleNode, error) {
	compiled, err := expr.Parse(expression)
	if err != nil {
		return nil, &graph.Error{Code: graph.CodeParse, NodeID: id, Message: err.Error(), Cause: err}
	}
	return &RuleNode{
		id:       id,
		source:   expression,
		compiled: compiled,
		inputs:   expr.Idents(compiled),
	}, nil
}

// MustRuleNode is NewRuleNode for expressions known valid, panicking
// on error.
func MustRuleNode(id, expression string) *RuleNode {
	n, err := NewRuleNode(id, expression)
	if err != nil {
		panic(err)
	}
	return n
}

// ID implements graph.Node.
func (n *RuleNode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *RuleNode) Kind() graph.NodeKind { return graph.KindRule }

// Expression returns the rule source text.
func (n *RuleNode) Expression() string { return n.source }

// InputKeys implements graph.InputDeclarer.
func (n *RuleNode) InputKeys() []string { return n.inputs }

// Run implements graph.Node.
func (n *RuleNode) Run(_ context.Context, c *graph.Context) (any, error) {
	v, err := n.compiled.Eval(c)
	if err != nil {
		return nil, &graph.Error{Code: graph.CodeEval, NodeID: n.id, Message: err.Error(), Cause: err}
	}
	return v, nil
}
