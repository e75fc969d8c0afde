package agent

import (
	"fmt"
	"sync"
)

// Registry manages a named collection of expert agents. Registration order is
// preserved because the consensus builder concatenates reasoning and dissent
// entries in that order. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]ExpertAgent
	order  []string
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		agents: make(map[string]ExpertAgent),
	}
}

// Register adds an agent under its own name. Registering the same name again
// replaces the implementation but keeps the original position in the order.
func (r *Registry) Register(a ExpertAgent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := a.Name()
	if _, exists := r.agents[name]; !exists {
		r.order = append(r.order, name)
	}
	r.agents[name] = a
}

// Get retrieves an agent by name. It returns an error when the name is not
// registered.
func (r *Registry) Get(name string) (ExpertAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	if !ok {
		return nil, fmt.Errorf("agent %q: not registered", name)
	}
	return a, nil
}

// List returns the names of all registered agents in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// All returns every registered agent in registration order.
func (r *Registry) All() []ExpertAgent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agents := make([]ExpertAgent, 0, len(r.order))
	for _, name := range r.order {
		agents = append(agents, r.agents[name])
	}
	return agents
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
