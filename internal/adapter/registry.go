package adapter

import (
	"fmt"
)

// Registry resolves provider types to adapters. It is constructed once at
// process start and passed by reference to the broadcaster and the webhook
// controllers; there is deliberately no package-level instance.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register installs an adapter. Registering two adapters for the same
// provider is a wiring bug, caught at startup.
func (r *Registry) Register(a Adapter) error {
	if _, exists := r.adapters[a.Provider()]; exists {
		return fmt.Errorf("adapter for provider %q already registered", a.Provider())
	}
	r.adapters[a.Provider()] = a
	return nil
}

// Get returns the adapter for a provider type.
func (r *Registry) Get(provider string) (Adapter, bool) {
	a, ok := r.adapters[provider]
	return a, ok
}
