package component

import (
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/hashidx"
	"github.com/l1jgo/simcore/internal/spatial"
)

// Set holds the component stores of a world, registered under their names.
type Set struct {
	Transform *ecs.Component[Transform]
	Velocity  *ecs.Component[Velocity]
	Shape     *ecs.Component[Shape]
	Lifetime  *ecs.Component[Lifetime]
}

// NewSet creates every store and registers it with w. opts tune the entity
// index of each store.
func NewSet(w *ecs.World, opts ...hashidx.Option) *Set {
	log := w.Logger()
	s := &Set{
		Transform: ecs.NewComponent[Transform]("transform", log),
		Velocity:  ecs.NewComponent[Velocity]("velocity", log),
		Shape:     ecs.NewComponent[Shape]("shape", log),
		Lifetime:  ecs.NewComponent[Lifetime]("lifetime", log),
	}
	for _, st := range []*ecs.Store{s.Transform.Store, s.Velocity.Store, s.Shape.Store, s.Lifetime.Store} {
		if len(opts) > 0 {
			st.Reindex(opts...)
		}
		w.Register(st)
	}
	return s
}

// Bounds returns e's box, or an empty box when it has no transform or shape.
// Safe to call from several goroutines while no store is mutated.
func (s *Set) Bounds(e ecs.EntityID) spatial.AABB {
	tr, ok := s.Transform.Lookup(e)
	if !ok {
		return spatial.Empty()
	}
	sh, ok := s.Shape.Lookup(e)
	if !ok {
		return spatial.Empty()
	}
	return spatial.Around(tr.Position, sh.Half)
}
