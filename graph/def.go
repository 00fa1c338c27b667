package graph

// NodeConfig declares a node in a graph document: its kind plus the
// kind-specific configuration used by node.ExecutorFromGraphDef to build a
// default implementation.
type NodeConfig struct {
	Kind   NodeKind       `json:"kind" yaml:"kind"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// RuleConfig declares a Rule node evaluating the given expression.
func RuleConfig(expression string) NodeConfig {
	return NodeConfig{Kind: KindRule, Config: map[string]any{"expression": expression}}
}

// DBConfig declares a DB node with a query and the context keys bound
// to its placeholders, in order.
func DBConfig(query string, paramKeys ...string) NodeConfig {
	params := make([]any, len(paramKeys))
	for i, k := range paramKeys {
		params[i] = k
	}
	return NodeConfig{Kind: KindDB, Config: map[string]any{"query": query, "params": params}}
}

// ConditionalConfig declares a Conditional node routing between two
// branch ids.
func ConditionalConfig(condition, thenBranch, elseBranch string) NodeConfig {
	return NodeConfig{Kind: KindConditional, Config: map[string]any{
		"condition": condition,
		"then":      thenBranch,
		"else":      elseBranch,
	}}
}

// Edge connects two declared nodes. An Edge with a non-empty Rule is
// gated: it only activates its target when the rule expression
// evaluates true at the moment From completes.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
	Rule string `json:"rule,omitempty" yaml:"rule,omitempty"`
}

// NewEdge returns an ungated edge.
func NewEdge(from, to string) Edge {
	return Edge{From: from, To: to}
}

// WithRule returns a copy of the edge gated by the given expression.
func (e Edge) WithRule(rule string) Edge {
	e.Rule = rule
	return e
}

// GraphDef is the declared shape of a workflow: nodes by id plus the
// edges between them. A GraphDef is plain data; pair it with a fresh
// Context via NewGraph to obtain an executable Graph.
type GraphDef struct {
	Nodes map[string]NodeConfig `json:"nodes" yaml:"nodes"`
	Edges []Edge                `json:"edges" yaml:"edges"`
}

// FromKinds builds a GraphDef where only the node kinds matter — the
// common case when every implementation is registered explicitly.
func FromKinds(kinds map[string]NodeKind, edges []Edge) *GraphDef {
	nodes := make(map[string]NodeConfig, len(kinds))
	for id, k := range kinds {
		nodes[id] = NodeConfig{Kind: k}
	}
	return &GraphDef{Nodes: nodes, Edges: edges}
}

// Clone copies the node map, each node's config map, and the edge
// slice so one parsed document can seed many executions. Values nested
// inside a config map (such as a params list) are shared, not copied.
func (d *GraphDef) Clone() *GraphDef {
	nodes := make(map[string]NodeConfig, len(d.Nodes))
	for id, nc := range d.Nodes {
		cfg := make(map[string]any, len(nc.Config))
		for k, v := range nc.Config {
			cfg[k] = v
		}
		nodes[id] = NodeConfig{Kind: nc.Kind, Config: cfg}
	}
	edges := make([]Edge, len(d.Edges))
	copy(edges, d.Edges)
	return &GraphDef{Nodes: nodes, Edges: edges}
}

// Graph pairs a definition with the Context of one execution. The
// Context outlives Execute so callers can inspect results and partial
// state after failures.
type Graph struct {
	Def     *GraphDef
	Context *Context
}

// NewGraph returns a Graph over def with an empty Context.
func NewGraph(def *GraphDef) *Graph {
	return &Graph{Def: def, Context: NewContext()}
}
