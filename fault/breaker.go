package fault

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// BreakerState is the circuit position.
type BreakerState int

const (
	// Closed admits every request.
	Closed BreakerState = iota
	// Open rejects every request until the recovery timeout elapses.
	Open
	// HalfOpen admits a limited probe stream; the first outcome
	// decides the next state.
	HalfOpen
)

// String implements fmt.Stringer with the wire-level names used in
// node results.
func (s BreakerState) String() string {
	switch s {
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// CircuitConfig tunes a breaker.
type CircuitConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// circuit.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays Open before
	// admitting probes.
	RecoveryTimeout time.Duration

	// ProbeInterval rate-limits probes while HalfOpen.
	ProbeInterval time.Duration
}

// DefaultCircuitConfig mirrors the engine's historical defaults.
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		ProbeInterval:    5 * time.Second,
	}
}

// persistedState is the JSON document shared through a StateStore.
type persistedState struct {
	Failures int       `json:"failures"`
	OpenedAt time.Time `json:"opened_at,omitempty"`
	State    string    `json:"state"`
}

// CircuitBreaker is a named Closed/Open/HalfOpen state machine. All
// transitions happen atomically under one mutex. When a StateStore is
// supplied the state is loaded at construction and written back after
// every transition, best-effort: store faults never block the breaker.
type CircuitBreaker struct {
	name  string
	cfg   CircuitConfig
	store StateStore

	mu        sync.Mutex
	state     BreakerState
	failures  int
	openedAt  time.Time
	lastProbe time.Time

	// now is swapped in tests to step through timing transitions.
	now func() time.Time
}

// NewCircuitBreaker creates a breaker. store may be nil for purely
// in-memory state; cfg zero values fall back to DefaultCircuitConfig.
func NewCircuitBreaker(name string, store StateStore, cfg CircuitConfig) *CircuitBreaker {
	def := DefaultCircuitConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = def.ProbeInterval
	}
	b := &CircuitBreaker{name: name, cfg: cfg, store: store, now: time.Now}
	b.load()
	return b
}

// Name returns the breaker's identity, also its StateStore key.
func (b *CircuitBreaker) Name() string { return b.name }

func (b *CircuitBreaker) storeKey() string { return "cb:" + b.name }

func (b *CircuitBreaker) load() {
	if b.store == nil {
		return
	}
	data, ok, err := b.store.Get(context.Background(), b.storeKey())
	if err != nil || !ok {
		return
	}
	var ps persistedState
	if json.Unmarshal(data, &ps) != nil {
		return
	}
	b.failures = ps.Failures
	b.openedAt = ps.OpenedAt
	switch ps.State {
	case "open":
		b.state = Open
	case "half_open":
		b.state = HalfOpen
	default:
		b.state = Closed
	}
}

func (b *CircuitBreaker) persistLocked(ctx context.Context) {
	if b.store == nil {
		return
	}
	ps := persistedState{Failures: b.failures, OpenedAt: b.openedAt, State: b.state.String()}
	data, err := json.Marshal(ps)
	if err != nil {
		return
	}
	_ = b.store.Put(ctx, b.storeKey(), data)
}

// Allow reports whether a request may proceed, advancing Open to
// HalfOpen once the recovery timeout has elapsed. HalfOpen admits at
// most one probe per ProbeInterval.
func (b *CircuitBreaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.RecoveryTimeout {
			return false
		}
		b.state = HalfOpen
		b.lastProbe = b.now()
		b.persistLocked(ctx)
		return true
	case HalfOpen:
		if b.now().Sub(b.lastProbe) < b.cfg.ProbeInterval {
			return false
		}
		b.lastProbe = b.now()
		return true
	default:
		return true
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.openedAt = time.Time{}
	b.persistLocked(ctx)
}

// RecordFailure counts one failure, opening the circuit when the
// threshold is crossed. A failed HalfOpen probe reopens immediately.
func (b *CircuitBreaker) RecordFailure(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.state == HalfOpen || b.failures >= b.cfg.FailureThreshold {
		b.state = Open
		b.openedAt = b.now()
	}
	b.persistLocked(ctx)
}

// State returns the current circuit position, applying the
// Open -> HalfOpen timing transition without admitting a probe.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.RecoveryTimeout {
		return HalfOpen
	}
	return b.state
}

// Failures returns the consecutive failure count.
func (b *CircuitBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
