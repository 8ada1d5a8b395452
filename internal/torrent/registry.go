package torrent

import "sort"

// Registry holds the configured providers plus one designated default.
// It is constructed once at startup and injected into the components
// that need provider lookup; there are no process-wide singletons.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name. The first registered
// provider becomes the default unless makeDefault is set on a later one.
func (r *Registry) Register(p Provider, makeDefault bool) {
	r.providers[p.Name()] = p
	if makeDefault || r.defaultName == "" {
		r.defaultName = p.Name()
	}
}

// Get returns the provider registered under name. Lookup by unknown
// name is a configuration error, not a silent fallback.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, NewConfigError("torrent provider '" + name + "' is not registered")
	}
	return p, nil
}

// Default returns the designated default provider.
func (r *Registry) Default() (Provider, error) {
	if r.defaultName == "" {
		return nil, NewConfigError("no default torrent provider configured")
	}
	return r.Get(r.defaultName)
}

// SetDefault designates an already-registered provider as the default.
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.providers[name]; !ok {
		return NewConfigError("cannot set default: provider '" + name + "' is not registered")
	}
	r.defaultName = name
	return nil
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
