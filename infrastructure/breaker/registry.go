// Package breaker wires domain/breaker.Breaker instances around the
// VectorStore/MetadataStore/GraphStore/embedding.Provider collaborators, so
// a flaky backend trips open rather than hanging every request.
package breaker

import (
	"sync"

	"github.com/kodexhq/kodex/domain/breaker"
)

// Registry hands out one Breaker per backend name, lazily constructed with
// the shared Config.
type Registry struct {
	mu       sync.Mutex
	cfg      breaker.Config
	breakers map[string]*breaker.Breaker
}

// NewRegistry constructs a Registry using cfg for every breaker it creates.
func NewRegistry(cfg breaker.Config) *Registry {
	return &Registry{cfg: cfg, breakers: make(map[string]*breaker.Breaker)}
}

// For returns the named backend's Breaker, creating it on first use.
func (r *Registry) For(name string) *breaker.Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = breaker.New(name, r.cfg)
		r.breakers[name] = b
	}
	return b
}

// States returns every known breaker's current state, keyed by backend
// name.
func (r *Registry) States() map[string]breaker.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]breaker.State, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
