package hashidx

// Registry maps uint64 ids to values of any type. Values live in a dense
// slice; the Index maps an id to its dense position. Deletion swap-removes.
type Registry[V any] struct {
	index  *Index
	ids    []uint64
	values []V
}

// NewRegistry returns an empty registry sized for capacity entries.
func NewRegistry[V any](capacity int, opts ...Option) *Registry[V] {
	return &Registry[V]{
		index:  New(capacity, opts...),
		ids:    make([]uint64, 0, capacity),
		values: make([]V, 0, capacity),
	}
}

// Len returns the number of entries.
func (r *Registry[V]) Len() int { return len(r.values) }

// Put stores v under id, returning the replaced value if there was one.
func (r *Registry[V]) Put(id uint64, v V) (V, bool) {
	if pos, ok := r.index.Lookup(id); ok {
		old := r.values[pos]
		r.values[pos] = v
		return old, true
	}
	r.index.Insert(id, uint64(len(r.values)))
	r.ids = append(r.ids, id)
	r.values = append(r.values, v)
	var zero V
	return zero, false
}

// Get returns the value stored under id.
func (r *Registry[V]) Get(id uint64) (V, bool) {
	pos, ok := r.index.Lookup(id)
	if !ok {
		var zero V
		return zero, false
	}
	return r.values[pos], true
}

// Delete removes id and returns its value.
func (r *Registry[V]) Delete(id uint64) (V, bool) {
	var zero V
	pos, ok := r.index.Lookup(id)
	if !ok {
		return zero, false
	}
	old := r.values[pos]
	last := len(r.values) - 1
	if int(pos) != last {
		r.ids[pos] = r.ids[last]
		r.values[pos] = r.values[last]
		r.index.Insert(r.ids[pos], pos)
	}
	r.values[last] = zero
	r.ids = r.ids[:last]
	r.values = r.values[:last]
	r.index.Remove(id)
	return old, true
}

// Each calls fn for every entry in dense order until fn returns false.
func (r *Registry[V]) Each(fn func(id uint64, v V) bool) {
	for i, v := range r.values {
		if !fn(r.ids[i], v) {
			return
		}
	}
}
