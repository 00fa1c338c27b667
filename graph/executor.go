package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/ksd-co/logicgraph-go/expr"
	"github.com/ksd-co/logicgraph-go/graph/emit"
)

// ResultCache is the executor's view of a result cache. The cache
// package provides the production implementation; anything honoring
// the contract can be attached via WithCache.
//
// GetOrCompute must deduplicate concurrent callers of the same key to
// a single compute invocation (single-flight) and report whether the
// value came from the cache. Cache faults degrade to a miss — they are
// never surfaced to the executor.
type ResultCache interface {
	GetOrCompute(ctx context.Context, key string, compute func(context.Context) (any, error)) (value any, hit bool, err error)
}

// FallbackHandler is consulted when a node fails. Returning a value
// with ok=true converts the failure into success with that value as
// the node result.
type FallbackHandler func(nodeID string, c *Context) (any, bool)

// Option configures an Executor.
type Option func(*executorConfig)

type executorConfig struct {
	cache         ResultCache
	emitter       emit.Emitter
	prom          *PrometheusMetrics
	maxConcurrent int
}

// WithCache attaches a shared result cache.
func WithCache(c ResultCache) Option {
	return func(cfg *executorConfig) { cfg.cache = c }
}

// WithEmitter attaches an observability emitter.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *executorConfig) { cfg.emitter = e }
}

// WithPrometheus attaches Prometheus metrics collection.
func WithPrometheus(pm *PrometheusMetrics) Option {
	return func(cfg *executorConfig) { cfg.prom = pm }
}

// WithMaxConcurrent bounds the number of nodes dispatched in parallel
// within a wave. Zero (the default) runs every peer concurrently.
func WithMaxConcurrent(n int) Option {
	return func(cfg *executorConfig) { cfg.maxConcurrent = n }
}

// Executor schedules a graph: it validates the definition, orders the
// nodes topologically, dispatches independent peers concurrently in
// waves, consults the result cache per node, and accounts metrics.
//
// An Executor is safe for concurrent Execute calls over distinct
// Graphs; registered nodes must therefore be stateless with respect to
// any particular Context.
type Executor struct {
	mu       sync.RWMutex
	nodes    map[string]Node
	fallback FallbackHandler
	cfg      executorConfig

	metricsMu sync.Mutex
	metrics   ExecutorMetrics
}

// NewExecutor returns an executor with no registered nodes.
func NewExecutor(opts ...Option) *Executor {
	cfg := executorConfig{emitter: emit.NewNullEmitter()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewNullEmitter()
	}
	return &Executor{nodes: make(map[string]Node), cfg: cfg}
}

// RegisterNode binds a node implementation to its id. Registering a
// duplicate or empty id fails with a Config error.
func (e *Executor) RegisterNode(n Node) error {
	if n == nil {
		return configErr("", "node is nil")
	}
	id := n.ID()
	if id == "" {
		return configErr("", "node id cannot be empty")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.nodes[id]; exists {
		return configErr(id, "duplicate node id %q", id)
	}
	e.nodes[id] = n
	return nil
}

// HasNode reports whether an implementation is registered for id.
func (e *Executor) HasNode(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.nodes[id]
	return ok
}

// SetFallbackHandler installs the failure hook consulted before a node
// error aborts execution.
func (e *Executor) SetFallbackHandler(f FallbackHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fallback = f
}

// Metrics returns the snapshot of the most recent Execute call.
func (e *Executor) Metrics() ExecutorMetrics {
	e.metricsMu.Lock()
	defer e.metricsMu.Unlock()
	return e.metrics
}

// nodeState tracks a node through Waiting -> Ready -> (Skipped |
// Running) -> (Succeeded | Failed).
type nodeState int

const (
	stateWaiting nodeState = iota
	stateReady
	stateRunning
	stateSkipped
	stateSucceeded
	stateFailed
)

// runPlan is the per-execution scheduling state derived from a
// GraphDef during validation.
type runPlan struct {
	runID    string
	indegree map[string]int
	// satisfied counts inbound edges that resolved active.
	satisfied map[string]int
	status    map[string]nodeState
	outEdges  map[string][]compiledEdge

	executed int64
	skipped  int64
	hits     int64
	misses   int64
}

type compiledEdge struct {
	to   string
	rule expr.Node // nil when ungated
}

// Execute runs the graph to completion. On failure the first fatal
// error is returned after metrics are finalized; the graph's Context
// retains its partial state for inspection.
func (e *Executor) Execute(ctx context.Context, g *Graph) error {
	start := time.Now()
	plan, err := e.buildPlan(g)

	var execErr error
	if err != nil {
		execErr = err
	} else {
		execErr = e.run(ctx, g, plan)
	}

	e.metricsMu.Lock()
	if plan != nil {
		e.metrics = ExecutorMetrics{
			TotalDuration: time.Since(start),
			NodesExecuted: int(atomic.LoadInt64(&plan.executed)),
			NodesSkipped:  int(atomic.LoadInt64(&plan.skipped)),
			CacheHits:     int(atomic.LoadInt64(&plan.hits)),
			CacheMisses:   int(atomic.LoadInt64(&plan.misses)),
		}
	} else {
		e.metrics = ExecutorMetrics{TotalDuration: time.Since(start)}
	}
	e.metricsMu.Unlock()

	return execErr
}

// buildPlan validates the graph and prepares scheduling state. Cycle
// detection runs Kahn's algorithm over a scratch indegree copy; the
// residue it reports holds every node on a cycle together with every
// node downstream of one.
func (e *Executor) buildPlan(g *Graph) (*runPlan, error) {
	if g == nil || g.Def == nil {
		return nil, configErr("", "graph is nil")
	}
	if g.Context == nil {
		g.Context = NewContext()
	}
	def := g.Def
	if err := def.Validate(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	for id := range def.Nodes {
		if _, ok := e.nodes[id]; !ok {
			e.mu.RUnlock()
			return nil, configErr(id, "no node registered for id %q", id)
		}
	}
	e.mu.RUnlock()

	plan := &runPlan{
		runID:     uuid.NewString(),
		indegree:  make(map[string]int, len(def.Nodes)),
		satisfied: make(map[string]int, len(def.Nodes)),
		status:    make(map[string]nodeState, len(def.Nodes)),
		outEdges:  make(map[string][]compiledEdge, len(def.Nodes)),
	}
	for id := range def.Nodes {
		plan.indegree[id] = 0
		plan.status[id] = stateWaiting
	}
	for _, edge := range def.Edges {
		var rule expr.Node
		if edge.Rule != "" {
			compiled, err := expr.Parse(edge.Rule)
			if err != nil {
				// Validate already parsed it; re-surface just in case.
				return nil, &Error{Code: CodeParse, Message: err.Error(), Cause: err}
			}
			rule = compiled
		}
		plan.outEdges[edge.From] = append(plan.outEdges[edge.From], compiledEdge{to: edge.To, rule: rule})
		plan.indegree[edge.To]++
	}

	// Kahn's algorithm on a scratch copy: nodes never reaching
	// indegree zero lie on a cycle or downstream of one. Both kinds are
	// reported; the residue is not narrowed to the cycle itself.
	scratch := make(map[string]int, len(plan.indegree))
	for id, d := range plan.indegree {
		scratch[id] = d
	}
	queue := make([]string, 0, len(scratch))
	for id, d := range scratch {
		if d == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, edge := range plan.outEdges[id] {
			scratch[edge.to]--
			if scratch[edge.to] == 0 {
				queue = append(queue, edge.to)
			}
		}
	}
	if visited != len(scratch) {
		var cyclic []string
		for id, d := range scratch {
			if d > 0 {
				cyclic = append(cyclic, id)
			}
		}
		return nil, &CycleError{Nodes: cyclic}
	}
	return plan, nil
}

// run drives the wave loop: dispatch every ready node concurrently,
// await the wave, resolve outbound edges, repeat.
func (e *Executor) run(ctx context.Context, g *Graph, plan *runPlan) error {
	var pool *ants.Pool
	if e.cfg.maxConcurrent > 0 {
		p, err := ants.NewPool(e.cfg.maxConcurrent)
		if err != nil {
			return &Error{Code: CodeConfig, Message: "creating worker pool: " + err.Error(), Cause: err}
		}
		pool = p
		defer pool.Release()
	}

	ready := make([]string, 0, len(plan.indegree))
	for id, d := range plan.indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}

	wave := 0
	for len(ready) > 0 {
		select {
		case <-ctx.Done():
			return &Error{Code: CodeCancelled, Message: "execution cancelled", Cause: ctx.Err()}
		default:
		}

		type outcome struct {
			id  string
			err error
		}
		results := make([]outcome, len(ready))
		var wg sync.WaitGroup

		for i, id := range ready {
			plan.status[id] = stateRunning
			i, id := i, id
			task := func() {
				defer wg.Done()
				results[i] = outcome{id: id, err: e.runNode(ctx, g, plan, wave, id)}
			}
			wg.Add(1)
			if pool != nil {
				if err := pool.Submit(task); err != nil {
					// Pool rejected the task (released or overloaded
					// beyond its blocking queue); run inline rather
					// than lose the node.
					task()
				}
			} else {
				go task()
			}
		}
		wg.Wait()

		var firstErr error
		completed := make([]string, 0, len(results))
		for _, r := range results {
			if r.err != nil {
				plan.status[r.id] = stateFailed
				if firstErr == nil {
					firstErr = r.err
				}
				continue
			}
			plan.status[r.id] = stateSucceeded
			completed = append(completed, r.id)
		}
		if firstErr != nil {
			return firstErr
		}

		ready = e.resolve(g, plan, wave, completed)
		wave++
	}
	return nil
}

// resolve processes the outbound edges of every node completed in the
// wave. Gated edges evaluate their rule against the current Context;
// evaluation errors count as false and are reported, never fatal. A
// node whose inbound edges have all resolved without one active edge
// is skipped, and its skip propagates transitively in the same pass.
func (e *Executor) resolve(g *Graph, plan *runPlan, wave int, completed []string) []string {
	var nextReady []string

	queue := make([]string, 0, len(completed))
	queue = append(queue, completed...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		fromSkipped := plan.status[id] == stateSkipped

		for _, edge := range plan.outEdges[id] {
			active := !fromSkipped
			if active && edge.rule != nil {
				ok, err := expr.EvalBool(edge.rule, g.Context)
				if err != nil {
					e.emitEvent(emit.Event{
						RunID:  plan.runID,
						NodeID: id,
						Wave:   wave,
						Msg:    emit.MsgEdgeRuleError,
						Meta:   map[string]any{"to": edge.to, "error": err.Error()},
						Time:   time.Now(),
					})
					ok = false
				}
				active = ok
			}

			plan.indegree[edge.to]--
			if active {
				plan.satisfied[edge.to]++
			}
			if plan.indegree[edge.to] > 0 {
				continue
			}
			// All inbound edges resolved.
			if plan.satisfied[edge.to] > 0 {
				plan.status[edge.to] = stateReady
				nextReady = append(nextReady, edge.to)
				continue
			}
			plan.status[edge.to] = stateSkipped
			atomic.AddInt64(&plan.skipped, 1)
			e.emitEvent(emit.Event{
				RunID:  plan.runID,
				NodeID: edge.to,
				Wave:   wave,
				Msg:    emit.MsgNodeSkipped,
				Time:   time.Now(),
			})
			queue = append(queue, edge.to)
		}
	}
	return nextReady
}

// runNode executes one node: cache consult first, then dispatch, then
// failure handling through the fallback hook.
func (e *Executor) runNode(ctx context.Context, g *Graph, plan *runPlan, wave int, id string) error {
	e.mu.RLock()
	n := e.nodes[id]
	fallback := e.fallback
	e.mu.RUnlock()

	e.emitEvent(emit.Event{RunID: plan.runID, NodeID: id, Wave: wave, Msg: emit.MsgNodeStart, Time: time.Now()})
	e.cfg.prom.AddInflight(1)
	start := time.Now()

	value, consult, err := e.dispatch(ctx, g, n)

	latency := time.Since(start)
	e.cfg.prom.AddInflight(-1)

	switch consult {
	case cacheHit:
		atomic.AddInt64(&plan.hits, 1)
		e.cfg.prom.IncCacheHit(plan.runID)
		e.emitEvent(emit.Event{RunID: plan.runID, NodeID: id, Wave: wave, Msg: emit.MsgCacheHit, Time: time.Now()})
	case cacheMiss:
		atomic.AddInt64(&plan.misses, 1)
		e.cfg.prom.IncCacheMiss(plan.runID)
	}

	if err != nil {
		e.emitEvent(emit.Event{
			RunID:  plan.runID,
			NodeID: id,
			Wave:   wave,
			Msg:    emit.MsgNodeError,
			Meta:   map[string]any{"error": err.Error()},
			Time:   time.Now(),
		})
		if fallback != nil {
			if v, ok := fallback(id, g.Context); ok {
				e.cfg.prom.IncFallback(plan.runID, id)
				e.emitEvent(emit.Event{RunID: plan.runID, NodeID: id, Wave: wave, Msg: emit.MsgFallbackInvoked, Time: time.Now()})
				value, err = v, nil
			}
		}
	}

	if err != nil {
		e.cfg.prom.RecordNodeLatency(plan.runID, id, latency, "error")
		var ge *Error
		if errors.As(err, &ge) {
			return err
		}
		return evalErr(id, err)
	}

	g.Context.Set(ResultKey(id), value)
	atomic.AddInt64(&plan.executed, 1)
	e.cfg.prom.RecordNodeLatency(plan.runID, id, latency, "success")
	e.emitEvent(emit.Event{RunID: plan.runID, NodeID: id, Wave: wave, Msg: emit.MsgNodeEnd, Time: time.Now()})
	return nil
}

// cacheConsult reports how the cache participated in one dispatch.
type cacheConsult int

const (
	cacheBypassed cacheConsult = iota
	cacheHit
	cacheMiss
)

// dispatch consults the cache when the node declares its inputs,
// otherwise runs it directly. Only declared-input nodes are ever
// cached: a fingerprint of (id, kind) alone would make the cache
// observable.
func (e *Executor) dispatch(ctx context.Context, g *Graph, n Node) (any, cacheConsult, error) {
	declarer, ok := n.(InputDeclarer)
	if e.cfg.cache == nil || !ok {
		v, err := n.Run(ctx, g.Context)
		return v, cacheBypassed, err
	}
	keys := declarer.InputKeys()
	if len(keys) == 0 {
		v, err := n.Run(ctx, g.Context)
		return v, cacheBypassed, err
	}

	fp, err := ComputeFingerprint(n.ID(), n.Kind(), g.Context.Snapshot(keys))
	if err != nil {
		// Unfingerprintable input degrades to an uncached run.
		v, runErr := n.Run(ctx, g.Context)
		return v, cacheBypassed, runErr
	}

	v, hit, runErr := e.cfg.cache.GetOrCompute(ctx, string(fp), func(ctx context.Context) (any, error) {
		return n.Run(ctx, g.Context)
	})
	if hit {
		return v, cacheHit, runErr
	}
	return v, cacheMiss, runErr
}

func (e *Executor) emitEvent(ev emit.Event) {
	e.cfg.emitter.Emit(ev)
}
