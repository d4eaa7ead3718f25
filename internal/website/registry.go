package website

import (
	"sort"
	"strings"
	"sync"
)

// Registry holds the destinations known to the process, keyed by Info().ID.
type Registry struct {
	mu    sync.RWMutex
	sites map[string]Website
}

func NewRegistry(sites ...Website) *Registry {
	r := &Registry{sites: make(map[string]Website)}
	for _, s := range sites {
		r.Register(s)
	}
	return r
}

func (r *Registry) Register(w Website) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[strings.ToLower(w.Info().ID)] = w
}

func (r *Registry) Get(id string) (Website, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.sites[strings.ToLower(id)]
	return w, ok
}

// All returns every destination ordered by id.
func (r *Registry) All() []Website {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Website, 0, len(r.sites))
	for _, w := range r.sites {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info().ID < out[j].Info().ID })
	return out
}

// UsernameShortcuts collects the username shortcuts of every destination.
func (r *Registry) UsernameShortcuts() []UsernameShortcut {
	var out []UsernameShortcut
	for _, w := range r.All() {
		out = append(out, w.Info().UsernameShortcuts...)
	}
	return out
}
