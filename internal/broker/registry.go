// Package broker holds the registry of configured broker adapters.
package broker

import (
	"fmt"
	"sort"

	"github.com/infinityai/tradebot/internal/domain"
)

// Registry maps broker names to their configured adapters. Register every
// adapter during wiring; lookups are read-only after that and safe to share.
type Registry struct {
	adapters map[domain.BrokerName]domain.BrokerAdapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.BrokerName]domain.BrokerAdapter)}
}

// Register adds an adapter under its own name, replacing any previous entry.
func (r *Registry) Register(a domain.BrokerAdapter) {
	r.adapters[a.Name()] = a
}

// Get returns the adapter for name. A recognized broker that was not
// configured yields ErrBrokerNotConfigured; an unrecognized name yields
// ErrBrokerUnsupported.
func (r *Registry) Get(name domain.BrokerName) (domain.BrokerAdapter, error) {
	if a, ok := r.adapters[name]; ok {
		return a, nil
	}
	if domain.KnownBroker(name) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBrokerNotConfigured, name)
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrBrokerUnsupported, name)
}

// Names returns the configured broker names in stable order.
func (r *Registry) Names() []domain.BrokerName {
	names := make([]domain.BrokerName, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// All returns the configured adapters ordered by name.
func (r *Registry) All() []domain.BrokerAdapter {
	names := r.Names()
	out := make([]domain.BrokerAdapter, 0, len(names))
	for _, name := range names {
		out = append(out, r.adapters[name])
	}
	return out
}

// Len reports how many adapters are configured.
func (r *Registry) Len() int { return len(r.adapters) }
