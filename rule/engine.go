package rule

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ksd-co/logicgraph-go/expr"
)

// DefaultMaxCycles bounds fire cycles so pathological rule sets
// terminate.
const DefaultMaxCycles = 100

// Rule is one compiled rule: a condition over working-memory fields
// and the assignments applied when it fires. Higher salience fires
// first; ties break on declaration order.
type Rule struct {
	Name     string
	Salience int
	When     expr.Node
	Actions  []expr.Assignment

	index int // declaration order, set by the engine
}

// Handle identifies an inserted fact.
type Handle int

type fact struct {
	template string // empty for untyped facts
	fields   map[string]any
}

// IncrementalEngine is the working-memory evaluator. Between Resets it
// fires every rule at most once: an activation whose condition no
// longer holds when its turn comes is discarded, so firings reflect
// the memory state at fire time, not at match time.
//
// The engine is safe for concurrent use; all entry points share one
// mutex.
type IncrementalEngine struct {
	mu sync.Mutex

	registry   *Registry
	rules      []*Rule
	facts      map[Handle]*fact
	order      []Handle
	nextHandle Handle
	fired      map[string]bool

	// MaxCycles caps fire iterations; zero means DefaultMaxCycles.
	MaxCycles int
}

// NewIncrementalEngine returns an empty engine with its own template
// registry.
func NewIncrementalEngine() *IncrementalEngine {
	return &IncrementalEngine{
		registry: NewRegistry(),
		facts:    make(map[Handle]*fact),
		fired:    make(map[string]bool),
	}
}

// Templates exposes the engine's template registry.
func (e *IncrementalEngine) Templates() *Registry { return e.registry }

// AddRule appends a rule in declaration order.
func (e *IncrementalEngine) AddRule(r Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r.index = len(e.rules)
	e.rules = append(e.rules, &r)
}

// RuleCount returns the number of loaded rules.
func (e *IncrementalEngine) RuleCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rules)
}

// Insert adds an untyped fact and returns its handle.
func (e *IncrementalEngine) Insert(fields map[string]any) Handle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.insertLocked("", fields)
}

// InsertWithTemplate validates fields against the named template, then
// inserts the fact.
func (e *IncrementalEngine) InsertWithTemplate(template string, fields map[string]any) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.registry.Get(template)
	if !ok {
		return 0, fmt.Errorf("unknown template %q", template)
	}
	norm, err := t.validate(fields)
	if err != nil {
		return 0, err
	}
	return e.insertLocked(template, norm), nil
}

func (e *IncrementalEngine) insertLocked(template string, fields map[string]any) Handle {
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	h := e.nextHandle
	e.nextHandle++
	e.facts[h] = &fact{template: template, fields: copied}
	e.order = append(e.order, h)
	return h
}

// Retract removes a fact from working memory.
func (e *IncrementalEngine) Retract(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.facts[h]; !ok {
		return
	}
	delete(e.facts, h)
	for i, other := range e.order {
		if other == h {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
}

// Fact returns a copy of a fact's fields.
func (e *IncrementalEngine) Fact(h Handle) (map[string]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.facts[h]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(f.fields))
	for k, v := range f.fields {
		out[k] = v
	}
	return out, true
}

// Reset clears the fired set so previously fired rules may fire again
// on the next FireAll.
func (e *IncrementalEngine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fired = make(map[string]bool)
}

// memoryEnv resolves identifiers across working memory: facts are
// consulted in insertion order and the first holding the field wins.
type memoryEnv struct {
	engine *IncrementalEngine
}

func (m memoryEnv) Lookup(name string) (any, bool) {
	for _, h := range m.engine.order {
		if v, ok := m.engine.facts[h].fields[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// assignLocked writes a field: to the first fact already holding it,
// otherwise to the most recently inserted fact.
func (e *IncrementalEngine) assignLocked(name string, value any) {
	for _, h := range e.order {
		if _, ok := e.facts[h].fields[name]; ok {
			e.facts[h].fields[name] = value
			return
		}
	}
	if len(e.order) == 0 {
		e.insertLocked("", map[string]any{name: value})
		return
	}
	last := e.order[len(e.order)-1]
	e.facts[last].fields[name] = value
}

// FireAll runs the match/fire loop and returns the total number of
// firings. Each cycle collects the rules whose condition currently
// holds and that have not fired since the last Reset, orders them by
// salience (declaration order on ties), and applies their actions.
// A condition invalidated by an earlier firing in the same cycle is
// re-checked and the activation dropped, keeping results deterministic
// under the stated ordering. Cycles repeat until a pass fires nothing
// or MaxCycles is reached.
func (e *IncrementalEngine) FireAll() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	maxCycles := e.MaxCycles
	if maxCycles <= 0 {
		maxCycles = DefaultMaxCycles
	}
	env := memoryEnv{engine: e}

	total := 0
	for cycle := 0; cycle < maxCycles; cycle++ {
		agenda := e.matchLocked(env)
		if len(agenda) == 0 {
			return total
		}

		firedThisCycle := 0
		for _, r := range agenda {
			// Re-check at fire time: an earlier firing may have
			// invalidated this activation.
			ok, err := expr.EvalBool(r.When, env)
			if err != nil || !ok {
				continue
			}
			for _, action := range r.Actions {
				v, err := action.Value.Eval(env)
				if err != nil {
					continue
				}
				e.assignLocked(action.Target, v)
			}
			e.fired[r.Name] = true
			firedThisCycle++
		}
		total += firedThisCycle
		if firedThisCycle == 0 {
			return total
		}
	}
	return total
}

func (e *IncrementalEngine) matchLocked(env expr.Env) []*Rule {
	var agenda []*Rule
	for _, r := range e.rules {
		if e.fired[r.Name] {
			continue
		}
		ok, err := expr.EvalBool(r.When, env)
		if err != nil {
			// A condition over absent fields simply does not match.
			continue
		}
		if ok {
			agenda = append(agenda, r)
		}
	}
	sort.SliceStable(agenda, func(i, j int) bool {
		if agenda[i].Salience != agenda[j].Salience {
			return agenda[i].Salience > agenda[j].Salience
		}
		return agenda[i].index < agenda[j].index
	})
	return agenda
}

// Result is the outcome of Engine.Evaluate.
type Result struct {
	// Fired is the total number of rule firings.
	Fired int

	// Facts is the working memory after firing, merged into one map.
	Facts map[string]any
}

// Engine is the rule-file facade: load GRL once, evaluate it against
// many fact sets. Each Evaluate runs on a private working memory, so
// one Engine serves concurrent callers.
type Engine struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewEngine returns an engine with no rules.
func NewEngine() *Engine {
	return &Engine{}
}

// AddGRL parses rule text and appends its rules.
func (e *Engine) AddGRL(src string) error {
	rules, err := LoadGRL(src)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = append(e.rules, rules...)
	return nil
}

// Evaluate inserts the fact set into a fresh working memory, fires all
// rules, and returns the firing count plus the resulting facts. The
// input map is not mutated.
func (e *Engine) Evaluate(facts map[string]any) (Result, error) {
	e.mu.RLock()
	rules := make([]Rule, len(e.rules))
	copy(rules, e.rules)
	e.mu.RUnlock()

	wm := NewIncrementalEngine()
	for _, r := range rules {
		wm.AddRule(r)
	}
	h := wm.Insert(facts)
	fired := wm.FireAll()

	out, _ := wm.Fact(h)
	return Result{Fired: fired, Facts: out}, nil
}
