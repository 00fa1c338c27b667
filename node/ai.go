package node

import (
	"context"

	"github.com/ksd-co/logicgraph-go/graph"
)

// ChatModel abstracts the language-model collaborator behind an
// AINode. The model package provides Anthropic, OpenAI, Google, and
// mock implementations.
type ChatModel interface {
	// Name identifies the backing model for results and logs.
	Name() string

	// Complete returns the model's response to a prompt.
	Complete(ctx context.Context, prompt string) (string, error)
}

// AINode sends a fixed prompt to a chat model and returns
// {"response": text, "model": name}.
type AINode struct {
	id     string
	prompt string
	model  ChatModel
}

// NewAINode creates an AI node over the given model.
func NewAINode(id, prompt string, model ChatModel) *AINode {
	return &AINode{id: id, prompt: prompt, model: model}
}

// ID implements graph.Node.
func (n *AINode) ID() string { return n.id }

// Kind implements graph.Node.
func (n *AINode) Kind() graph.NodeKind { return graph.KindAI }

// Run implements graph.Node.
func (n *AINode) Run(ctx context.Context, _ *graph.Context) (any, error) {
	if n.model == nil {
		return nil, &graph.Error{Code: graph.CodeConfig, NodeID: n.id, Message: "no chat model configured"}
	}
	response, err := n.model.Complete(ctx, n.prompt)
	if err != nil {
		return nil, &graph.Error{Code: graph.CodeEval, NodeID: n.id, Message: "model call failed: " + err.Error(), Cause: err}
	}
	return map[string]any{"response": response, "model": n.model.Name()}, nil
}
