// Package registry holds the immutable domain table: each knowledge
// domain's retrieval policy and its assembled embedder.
package registry

import (
	"fmt"

	"github.com/unswcbr/dory/internal/domain"
)

// Entry pairs a domain with its ready-to-use embedder chain.
type Entry struct {
	Domain   domain.Domain
	Embedder domain.Embedder
}

// Registry is the static domain table, built once at startup.
// Reads are lock-free; the whole registry is immutable.
type Registry struct {
	entries map[string]Entry
	order   []string
}

// New builds a registry from construction-ordered entries.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Domain.ID == "" {
			return nil, fmt.Errorf("domain id is required")
		}
		if _, dup := r.entries[e.Domain.ID]; dup {
			return nil, fmt.Errorf("duplicate domain %q", e.Domain.ID)
		}
		if e.Embedder == nil {
			return nil, fmt.Errorf("domain %q has no embedder", e.Domain.ID)
		}
		r.entries[e.Domain.ID] = e
		r.order = append(r.order, e.Domain.ID)
	}
	return r, nil
}

// Get returns the entry for a domain ID.
func (r *Registry) Get(id string) (Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, fmt.Errorf("domain %q: %w", id, domain.ErrUnknownDomain)
	}
	return e, nil
}

// Has reports whether the domain is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// IDs returns domain IDs in registration order. Iteration order matters
// for routing determinism; callers must not depend on map order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
