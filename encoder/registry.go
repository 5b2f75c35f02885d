package encoder

import (
	"fmt"
	"sync"
)

// Factory constructs an Encoder for a capability key (e.g. a language or
// model variant). Construction may be expensive, so the registry runs it
// lazily and at most once per key.
type Factory func(key string) (Encoder, error)

// Registry holds lazily-initialized encoders keyed by a resolved capability.
//
// It replaces module-level model singletons: construct one Registry, inject
// it, and resolve encoders through it. The mutex guards only the lazy-init
// path; resolved handles are served from the map.
type Registry struct {
	mu      sync.Mutex
	factory Factory
	handles map[string]Encoder
}

// NewRegistry creates an encoder registry backed by factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory: factory,
		handles: make(map[string]Encoder),
	}
}

// Get returns the encoder for key, constructing and caching it on first use.
// A failed construction is not cached; the next Get retries.
func (r *Registry) Get(key string) (Encoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if enc, ok := r.handles[key]; ok {
		return enc, nil
	}
	enc, err := r.factory(key)
	if err != nil {
		return nil, fmt.Errorf("encoder: init %q: %w", key, err)
	}
	r.handles[key] = enc
	return enc, nil
}

// Keys returns the capability keys with initialized encoders.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := make([]string, 0, len(r.handles))
	for k := range r.handles {
		keys = append(keys, k)
	}
	return keys
}
