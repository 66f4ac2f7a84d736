package provider

import (
	"sync"

	"github.com/mfontane/borgata/internal/capability"
	"github.com/mfontane/borgata/internal/fault"
)

// Resolver maps provider ids to registered ModelProvider instances.
// Lookup normalizes aliases the same way the capability registry does,
// so "claude" and "anthropic" resolve to the same backend.
type Resolver struct {
	mu        sync.RWMutex
	providers map[string]ModelProvider
	def       string
}

// NewResolver creates an empty resolver. The first registered provider
// becomes the default.
func NewResolver() *Resolver {
	return &Resolver{providers: make(map[string]ModelProvider)}
}

// Register adds a provider under its canonical id.
func (r *Resolver) Register(p ModelProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := capability.Normalize(p.ID())
	r.providers[id] = p
	if r.def == "" {
		r.def = id
	}
}

// Resolve returns the provider for the given id, or the default when
// the id is empty.
func (r *Resolver) Resolve(providerID string) (ModelProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := capability.Normalize(providerID)
	if id == "" {
		id = r.def
	}
	p, ok := r.providers[id]
	if !ok {
		return nil, fault.NotFound("provider", providerID)
	}
	return p, nil
}

// Default returns the default provider.
func (r *Resolver) Default() (ModelProvider, error) {
	return r.Resolve("")
}
