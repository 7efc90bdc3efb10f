package ecs

import (
	"fmt"
	"hash/fnv"

	"github.com/l1jgo/simcore/internal/core/hashidx"
)

// Registry tracks every component store of a world by name.
type Registry struct {
	stores *hashidx.Registry[*Store]
}

func NewRegistry() *Registry {
	return &Registry{stores: hashidx.NewRegistry[*Store](16)}
}

func storeKey(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// Register adds a store. Names must be unique within a registry.
func (r *Registry) Register(s *Store) {
	if _, dup := r.stores.Put(storeKey(s.Name()), s); dup {
		panic(fmt.Sprintf("ecs: store %q registered twice", s.Name()))
	}
}

// Lookup returns the store registered under name.
func (r *Registry) Lookup(name string) (*Store, bool) {
	return r.stores.Get(storeKey(name))
}

// Len returns the number of registered stores.
func (r *Registry) Len() int { return r.stores.Len() }

// Each calls fn for every store in registration order.
func (r *Registry) Each(fn func(*Store)) {
	r.stores.Each(func(_ uint64, s *Store) bool {
		fn(s)
		return true
	})
}

// RemoveAll clears the given entity from every store that holds it.
func (r *Registry) RemoveAll(id EntityID) {
	r.Each(func(s *Store) {
		if s.Find(id) != 0 {
			s.Remove(id)
		}
	})
}
