package node

import (
	"fmt"

	"github.com/ksd-co/logicgraph-go/graph"
)

// Collaborators supplies the external dependencies default nodes are
// built over. Any field may be nil; a declared node whose kind needs a
// missing collaborator falls back to its degraded behavior (DB echoes)
// or fails with Config (AI, Grpc).
type Collaborators struct {
	DB    DatabaseExecutor
	Model ChatModel
	Grpc  Invoker
}

// ExecutorFromGraphDef builds an executor with a default
// implementation registered for every node the definition declares,
// constructed from each node's config block. Kinds wrapping arbitrary
// inner operations (Retry, TryCatch, CircuitBreaker, Custom) carry
// behavior a document cannot express, so they must be registered on
// the returned executor before Execute.
func ExecutorFromGraphDef(def *graph.GraphDef, deps Collaborators, opts ...graph.Option) (*graph.Executor, error) {
	exec := graph.NewExecutor(opts...)
	if err := RegisterDefaults(exec, def, deps); err != nil {
		return nil, err
	}
	return exec, nil
}

// RegisterDefaults registers a default node for every declared id that
// has no implementation yet, so explicit registrations always win.
func RegisterDefaults(exec *graph.Executor, def *graph.GraphDef, deps Collaborators) error {
	if def == nil {
		return &graph.Error{Code: graph.CodeConfig, Message: "graph definition is nil"}
	}
	for id, nc := range def.Nodes {
		if exec.HasNode(id) {
			continue
		}
		built, err := buildDefault(id, nc, deps)
		if err != nil {
			return err
		}
		if built == nil {
			continue
		}
		if err := exec.RegisterNode(built); err != nil {
			return err
		}
	}
	return nil
}

func buildDefault(id string, nc graph.NodeConfig, deps Collaborators) (graph.Node, error) {
	cfg := nc.Config
	switch nc.Kind {
	case graph.KindRule:
		return NewRuleNode(id, stringOr(cfg, "expression", "true"))

	case graph.KindConditional:
		cond, err := NewConditionalNode(id, stringOr(cfg, "condition", "true"))
		if err != nil {
			return nil, err
		}
		return cond.WithBranches(stringOr(cfg, "then", ""), stringOr(cfg, "else", "")), nil

	case graph.KindDB:
		n := NewDBNode(id, stringOr(cfg, "query", "")).WithExecutor(deps.DB)
		if params, ok := cfg["params"].([]any); ok {
			keys := make([]string, 0, len(params))
			for _, p := range params {
				keys = append(keys, fmt.Sprintf("%v", p))
			}
			n = n.WithParams(keys...)
		}
		return n, nil

	case graph.KindAI:
		return NewAINode(id, stringOr(cfg, "prompt", ""), deps.Model), nil

	case graph.KindGrpc:
		n := NewGrpcNode(id, stringOr(cfg, "target", ""), stringOr(cfg, "method", ""), deps.Grpc)
		if keys, ok := cfg["payload"].([]any); ok {
			names := make([]string, 0, len(keys))
			for _, k := range keys {
				names = append(names, fmt.Sprintf("%v", k))
			}
			n = n.WithPayloadKeys(names...)
		}
		return n, nil

	case graph.KindLoop:
		if collection := stringOr(cfg, "collection", ""); collection != "" {
			return NewForeachLoop(id, collection), nil
		}
		cond := stringOr(cfg, "condition", "")
		if cond == "" {
			return nil, &graph.Error{
				Code:    graph.CodeConfig,
				NodeID:  id,
				Message: "loop node needs a collection or a condition",
			}
		}
		return NewWhileLoop(id, cond, intOr(cfg, "max_iterations", 100))

	case graph.KindRetry, graph.KindTryCatch, graph.KindCircuitBreaker, graph.KindCustom:
		return nil, &graph.Error{
			Code:    graph.CodeConfig,
			NodeID:  id,
			Message: fmt.Sprintf("%s nodes wrap runtime operations; register %q explicitly", nc.Kind, id),
		}
	}
	return nil, &graph.Error{Code: graph.CodeConfig, NodeID: id, Message: fmt.Sprintf("unknown node kind %q", nc.Kind)}
}

func stringOr(cfg map[string]any, key, fallback string) string {
	if cfg == nil {
		return fallback
	}
	if s, ok := cfg[key].(string); ok {
		return s
	}
	return fallback
}

func intOr(cfg map[string]any, key string, fallback int) int {
	if cfg == nil {
		return fallback
	}
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}
