package checker

import (
	"fmt"
	"sort"
	"sync"
)

// Registry resolves checker identifiers to implementations. Checkers are
// registered once at startup; a resolve miss is a configuration error, not
// a runtime crash.
type Registry struct {
	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{checkers: make(map[string]Checker)}
}

// Register adds a checker under an identifier. Re-registering an identifier
// replaces the previous checker.
func (r *Registry) Register(id string, c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers[id] = c
}

// Resolve returns the checker registered under id.
func (r *Registry) Resolve(id string) (Checker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.checkers[id]
	if !ok {
		return nil, fmt.Errorf("no checker registered for %q (known: %v)", id, r.names())
	}
	return c, nil
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.checkers))
	for id := range r.checkers {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}
