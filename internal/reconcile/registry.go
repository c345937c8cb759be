package reconcile

// Registry holds the known plugin descriptors in a stable order with an id
// index. It is owned by the session loop and must not be shared across
// goroutines.
type Registry struct {
	order []*Descriptor
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Find returns the descriptor for an id, or nil.
func (r *Registry) Find(id string) *Descriptor {
	if i, ok := r.index[id]; ok {
		return r.order[i]
	}
	return nil
}

// Contains reports whether a descriptor with the id is registered.
func (r *Registry) Contains(id string) bool {
	_, ok := r.index[id]
	return ok
}

// AppendOrUpdate replaces the descriptor with the same id in place, keeping
// its position, or appends a new one. The registry never holds two entries
// with one plugin id.
func (r *Registry) AppendOrUpdate(d *Descriptor) {
	if i, ok := r.index[d.ID]; ok {
		r.order[i] = d
		return
	}
	r.index[d.ID] = len(r.order)
	r.order = append(r.order, d)
}

// Remove deletes the descriptor with the id, preserving the order of the
// remaining entries. Returns the removed descriptor, or nil.
func (r *Registry) Remove(id string) *Descriptor {
	i, ok := r.index[id]
	if !ok {
		return nil
	}
	removed := r.order[i]
	r.order = append(r.order[:i], r.order[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.order); j++ {
		r.index[r.order[j].ID] = j
	}
	return removed
}

// All returns the descriptors in registration order. The slice is fresh but
// the descriptors are shared; callers outside the loop must use Clone.
func (r *Registry) All() []*Descriptor {
	out := make([]*Descriptor, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered descriptors.
func (r *Registry) Len() int {
	return len(r.order)
}
