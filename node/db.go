package node

import (
	"context"
	"fmt"

	"github.com/ksd-co/logicgraph-go/graph"
)

// DatabaseExecutor abstracts the SQL layer a DBNode delegates to. The
// dbexec package provides SQLite and MySQL implementations; the core
// never inspects the query text — placeholder dialects are the
// executor's concern.
type DatabaseExecutor interface {
	Execute(ctx context.Context, query string, params []string) (any, error)
}

// DBNode runs a parameterized query. Parameters are looked up in the
// context by key, in declared order, and stringified for the driver.
// The declared keys double as the node's cache inputs.
type DBNode struct {
	id        string
	query     string
	paramKeys []string
	exec      DatabaseExecutor
}

// NewDBNode creates a DB node. Without an executor the node echoes
// the query instead of running it, which keeps graphs executable in
// environments with no database wired.
func NewDBNode(id, query string) *DBNode {
	return &DBNode{id: id, query: query}
}

// WithParams declares the context keys bound to query placeholders,
// in order.
func (n *DBNode) WithParams(keys ...string) *DBNode {
	n.paramKeys = append([]string(nil), keys...)
	return n
}

// WithExecutor wires the SQL collaborator.
func (n *DBNode) WithExecutor(exec DatabaseExecutor) *DBNode {
	n.exec = exec
	return n
}

// ID implements graph.Node.
func (n *DBNode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *DBNode) Kind() graph.NodeKind { return graph.KindDB }

// InputKeys implements graph.InputDeclarer.
func (n *DBNode) InputKeys() []string { return n.paramKeys }

// Run implements graph.Node.
func (n *DBNode) Run(ctx context.Context, c *graph.Context) (any, error) {
	params := make([]string, 0, len(n.paramKeys))
	for _, key := range n.paramKeys {
		v, ok := c.Get(key)
		if !ok {
			return nil, &graph.Error{
				Code:    graph.CodeEval,
				NodeID:  n.id,
				Message: fmt.Sprintf("missing query parameter %q in context", key),
			}
		}
		params = append(params, stringify(v))
	}

	if n.exec == nil {
		return map[string]any{"executed": false, "query": n.query, "params": params}, nil
	}

	row, err := n.exec.Execute(ctx, n.query, params)
	if err != nil {
		return nil, &graph.Error{
			Code:    graph.CodeEval,
			NodeID:  n.id,
			Message: fmt.Sprintf("query failed: %v", err),
			Cause:   err,
		}
	}
	return row, nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
