// Package agents implements the agent registry: resolution of an agent
// identifier to its immutable execution profile. Lookup is a collaborator of
// the pipeline driver; unknown identifiers never fail a run, the caller
// substitutes the generic default profile instead.
package agents

import (
	"sync"
	"time"

	"github.com/hupe1980/agentstudio/core"
)

// Store resolves agent identifiers to descriptors. Implementations must be
// safe for concurrent use.
type Store interface {
	// Lookup returns the descriptor registered under id. The boolean reports
	// whether the id is known; callers apply Default for unknown ids.
	Lookup(id string) (core.AgentDescriptor, bool)

	// All returns every registered descriptor in registration order.
	All() []core.AgentDescriptor
}

// Default returns the generic fallback profile substituted for an unknown
// agent identifier so that a run never fails on registry misses.
func Default(id string) core.AgentDescriptor {
	return core.AgentDescriptor{
		ID:              id,
		Label:           id,
		Model:           "generic-assistant",
		BackendModelRef: "generic-assistant",
		SystemPrompt:    "You are a helpful assistant. Answer the request concisely.",
		Role:            core.RoleAssistant,
		Profile: core.SimulationProfile{
			TokensPerSec: 40,
			VRAMGb:       2.0,
			Warmup:       300 * time.Millisecond,
		},
	}
}

// ResolveOrDefault looks up id and falls back to the generic default profile
// when the registry does not know it.
func ResolveOrDefault(s Store, id string) core.AgentDescriptor {
	if desc, ok := s.Lookup(id); ok {
		return desc
	}
	return Default(id)
}

// InMemoryStore is a threadsafe in-memory Store preserving registration
// order. The zero value is not usable; construct via NewInMemoryStore.
type InMemoryStore struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]core.AgentDescriptor
}

// NewInMemoryStore creates a store seeded with the given descriptors. With
// no arguments it is seeded with the built-in agent set.
func NewInMemoryStore(descs ...core.AgentDescriptor) *InMemoryStore {
	if len(descs) == 0 {
		descs = Builtins()
	}
	s := &InMemoryStore{byID: make(map[string]core.AgentDescriptor, len(descs))}
	for _, d := range descs {
		s.register(d)
	}
	return s
}

func (s *InMemoryStore) register(d core.AgentDescriptor) {
	if _, exists := s.byID[d.ID]; !exists {
		s.order = append(s.order, d.ID)
	}
	s.byID[d.ID] = d
}

// Register adds or replaces a descriptor.
func (s *InMemoryStore) Register(d core.AgentDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.register(d)
}

// Lookup implements Store.
func (s *InMemoryStore) Lookup(id string) (core.AgentDescriptor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	return d, ok
}

// All implements Store.
func (s *InMemoryStore) All() []core.AgentDescriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.AgentDescriptor, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// ByRole returns registered descriptors with the given role, in
// registration order.
func ByRole(s Store, role core.Role) []core.AgentDescriptor {
	var out []core.AgentDescriptor
	for _, d := range s.All() {
		if d.Role == role {
			out = append(out, d)
		}
	}
	return out
}

// FirstByRole returns the first registered descriptor with the given role.
func FirstByRole(s Store, role core.Role) (core.AgentDescriptor, bool) {
	for _, d := range s.All() {
		if d.Role == role {
			return d, true
		}
	}
	return core.AgentDescriptor{}, false
}
