package node

import (
	"context"
	"fmt"

	"github.com/ksd-co/logicgraph-go/graph"
)

// Invoker abstracts the RPC collaborator behind a GrpcNode. The rpc
// package provides a gRPC implementation.
type Invoker interface {
	Invoke(ctx context.Context, target, method string, payload map[string]any) (any, error)
}

// GrpcNode calls a remote method, building its payload from declared
// context keys the way DBNode builds query parameters.
type GrpcNode struct {
	id          string
	target      string
	method      string
	payloadKeys []string
	invoker     Invoker
}

// NewGrpcNode creates an RPC node.
func NewGrpcNode(id, target, method string, invoker Invoker) *GrpcNode {
	return &GrpcNode{id: id, target: target, method: method, invoker: invoker}
}

// WithPayloadKeys declares the context keys copied into the request
// payload.
func (n *GrpcNode) WithPayloadKeys(keys ...string) *GrpcNode {
	n.payloadKeys = append([]string(nil), keys...)
	return n
}

// ID implements graph.Node.
func (n *GrpcNode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *GrpcNode) Kind() graph.NodeKind { return graph.KindGrpc }

// InputKeys implements graph.InputDeclarer.
func (n *GrpcNode) InputKeys() []string { return n.payloadKeys }

// Run implements graph.Node.
func (n *GrpcNode) Run(ctx context.Context, c *graph.Context) (any, error) {
	if n.invoker == nil {
		return nil, &graph.Error{Code: graph.CodeConfig, NodeID: n.id, Message: "no invoker configured"}
	}
	payload := c.Snapshot(n.payloadKeys)
	result, err := n.invoker.Invoke(ctx, n.target, n.method, payload)
	if err != nil {
		return nil, &graph.Error{
			Code:    graph.CodeEval,
			NodeID:  n.id,
			Message: fmt.Sprintf("rpc %s/%s failed: %v", n.target, n.method, err),
			Cause:   err,
		}
	}
	return result, nil
}
