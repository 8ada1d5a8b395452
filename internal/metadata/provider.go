// Package metadata defines the pluggable metadata backend used to turn
// free-text user queries into canonical media descriptions.
package metadata

import (
	"context"
	"errors"

	"github.com/seekarr/seekarr/internal/media"
)

// ErrUnknownBackend is returned when a backend name has no registered
// provider.
var ErrUnknownBackend = errors.New("unknown metadata backend")

// Provider is a metadata backend. Search resolves free text into
// candidate items; Details fetches the full description of one item,
// including seasons for series.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]media.Item, error)
	Details(ctx context.Context, id string) (*media.Description, error)
}

// Registry holds the configured metadata backends plus one designated
// default, selected by configuration at startup.
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a backend under its own name. The first registered
// backend becomes the default unless makeDefault is set on a later one.
func (r *Registry) Register(p Provider, makeDefault bool) {
	r.providers[p.Name()] = p
	if makeDefault || r.defaultName == "" {
		r.defaultName = p.Name()
	}
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownBackend
	}
	return p, nil
}

// Default returns the designated default backend.
func (r *Registry) Default() (Provider, error) {
	if r.defaultName == "" {
		return nil, ErrUnknownBackend
	}
	return r.Get(r.defaultName)
}
