package providers

import (
	"github.com/updeck/updeck/internal/elevation"
	"github.com/updeck/updeck/internal/executor"
)

// Registry maps provider ids to adapters. Iteration helpers return
// providers in a fixed registration order so output is stable across
// runs.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry builds the standard registry over real process execution,
// with configured timeout overrides applied to every provider.
func NewRegistry(helper *elevation.Helper, timeouts Timeouts) *Registry {
	run := executor.Run
	lookPath := executor.ResolveOnPath
	return NewRegistryWith(
		NewWingetProvider(run, lookPath, helper, timeouts),
		NewMiseProvider(run, lookPath, timeouts),
		NewNpmProvider(run, lookPath, timeouts),
		NewPnpmProvider(run, lookPath, timeouts),
		NewPSModuleProvider(run, lookPath, timeouts),
	)
}

// NewRegistryWith builds a registry from explicit providers, mainly for
// tests.
func NewRegistryWith(list ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(list))}
	for _, p := range list {
		if _, dup := r.providers[p.ID()]; dup {
			continue
		}
		r.order = append(r.order, p.ID())
		r.providers[p.ID()] = p
	}
	return r
}

// Get returns the provider for id, or nil.
func (r *Registry) Get(id string) Provider {
	return r.providers[id]
}

func (r *Registry) Has(id string) bool {
	_, ok := r.providers[id]
	return ok
}

// IDs returns provider ids in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// All returns providers in registration order.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.providers[id])
	}
	return out
}
