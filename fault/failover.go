package fault

import "context"

// ServiceEndpoint is one target a caller can fail over to.
type ServiceEndpoint struct {
	Name string
	URL  string
}

// FailoverManager holds an ordered endpoint list with one circuit
// breaker per endpoint. Select walks the list in declaration order and
// returns the first endpoint whose breaker admits a request; when all
// circuits are open it returns nothing and the caller degrades through
// the executor's fallback handler.
type FailoverManager struct {
	endpoints []ServiceEndpoint
	breakers  map[string]*CircuitBreaker
}

// NewFailoverManager builds one breaker per endpoint, named after the
// endpoint, sharing the given store and configuration. store may be
// nil.
func NewFailoverManager(endpoints []ServiceEndpoint, store StateStore, cfg CircuitConfig) *FailoverManager {
	fm := &FailoverManager{
		endpoints: append([]ServiceEndpoint(nil), endpoints...),
		breakers:  make(map[string]*CircuitBreaker, len(endpoints)),
	}
	for _, ep := range endpoints {
		fm.breakers[ep.Name] = NewCircuitBreaker(ep.Name, store, cfg)
	}
	return fm
}

// Select returns the first admissible endpoint. Calling Select counts
// as starting a request on that endpoint's breaker, so a HalfOpen
// breaker spends its probe here.
func (fm *FailoverManager) Select(ctx context.Context) (ServiceEndpoint, bool) {
	for _, ep := range fm.endpoints {
		if fm.breakers[ep.Name].Allow(ctx) {
			return ep, true
		}
	}
	return ServiceEndpoint{}, false
}

// Breaker exposes the breaker for an endpoint so callers can record
// request outcomes.
func (fm *FailoverManager) Breaker(name string) *CircuitBreaker {
	return fm.breakers[name]
}

// Endpoints returns the configured endpoints in order.
func (fm *FailoverManager) Endpoints() []ServiceEndpoint {
	return append([]ServiceEndpoint(nil), fm.endpoints...)
}
