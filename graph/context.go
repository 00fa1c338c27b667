// Package graph provides the core logic-graph execution engine:
// the Context flowing between nodes, the Node contract, graph
// definitions, and the Executor that schedules them.
package graph

import (
	"encoding/json"
	"sync"
)

// Well-known context keys written by the control-flow nodes.
const (
	// BranchTakenKey holds the branch id chosen by the most recent
	// ConditionalNode.
	BranchTakenKey = "_branch_taken"

	// CurrentItemKey and CurrentIndexKey expose the element under a
	// foreach loop iteration.
	CurrentItemKey  = "_current_item"
	CurrentIndexKey = "_current_index"

	// ErrorKey holds the message of the error caught by a TryCatchNode.
	ErrorKey = "_error"
)

// ResultKey returns the context key a node's output is merged under.
func ResultKey(nodeID string) string {
	return nodeID + "_result"
}

// Context is the mutable key/value scratchpad passed through a graph
// execution. Values are JSON-typed: nil, bool, int64/float64, string,
// []any, map[string]any.
//
// A Context belongs to exactly one Graph. Access is internally
// synchronized so peer nodes of the same wave may read and write
// concurrently; the executor's dispatch discipline keeps their write
// sets disjoint.
type Context struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{data: make(map[string]any)}
}

// Get returns the value stored under key. The second result reports
// presence; a missing key is never a fault.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Set stores value under key. Writes are last-write-wins.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Delete removes key. Deleting a missing key is a no-op.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Len reports the number of stored keys.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Keys returns the stored keys in unspecified order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}

// Snapshot returns a copy of the mapping restricted to keys. Missing
// keys are omitted. Used for fingerprinting declared inputs.
func (c *Context) Snapshot(keys []string) map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := c.data[k]; ok {
			out[k] = v
		}
	}
	return out
}

// All returns a copy of the full mapping. The copy is shallow: callers
// must not mutate nested values.
func (c *Context) All() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Lookup implements expr.Env so expressions evaluate directly against
// the context.
func (c *Context) Lookup(name string) (any, bool) {
	return c.Get(name)
}

// MarshalJSON serializes the current mapping. Handy for diagnostics
// after a failed execution.
func (c *Context) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.All())
}
