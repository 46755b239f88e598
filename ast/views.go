package ast

import "sync"

// ViewRegistry interns view names to small integer ids. Id 0 means no view.
type ViewRegistry struct {
	mu  sync.Mutex
	ids map[string]int
}

// Views is the process-wide view registry shared by rules and host values.
var Views = &ViewRegistry{}

// ID returns the id for name, allocating the next id on first use.
func (r *ViewRegistry) ID(name string) int {
	if name == "" {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids == nil {
		r.ids = make(map[string]int)
	}
	if id, ok := r.ids[name]; ok {
		return id
	}
	id := len(r.ids) + 1
	r.ids[name] = id
	return id
}

// Name returns the view name for an id.
func (r *ViewRegistry) Name(id int) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, v := range r.ids {
		if v == id {
			return name, true
		}
	}
	return "", false
}

// ViewID interns name in the shared registry.
func ViewID(name string) int {
	return Views.ID(name)
}
