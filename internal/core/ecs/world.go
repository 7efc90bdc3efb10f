package ecs

import (
	"github.com/l1jgo/simcore/internal/core/table"
	"go.uber.org/zap"
)

// World is the top-level ECS container. It owns the entity allocator, the
// store registry, and a deferred destruction queue flushed once per tick.
// It is passed explicitly to whatever needs it; there is no global instance.
type World struct {
	alloc        *Allocator
	registry     *Registry
	destroyQueue []EntityID
	log          *zap.Logger
}

func NewWorld(minFree int, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	return &World{
		alloc:        NewAllocator(minFree, log),
		registry:     NewRegistry(),
		destroyQueue: make([]EntityID, 0, 64),
		log:          log,
	}
}

func (w *World) Allocator() *Allocator { return w.alloc }
func (w *World) Registry() *Registry   { return w.registry }
func (w *World) Logger() *zap.Logger   { return w.log }

// Register adds a store so it takes part in destruction, GC and snapshots.
func (w *World) Register(s *Store) {
	w.registry.Register(s)
}

func (w *World) CreateEntity(tag uint8) EntityID {
	return w.alloc.Acquire(tag)
}

func (w *World) Alive(id EntityID) bool {
	return w.alloc.Check(id)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(id EntityID) {
	w.destroyQueue = append(w.destroyQueue, id)
}

// FlushDestroyQueue removes queued entities from every store and retires
// them. It returns how many entities were retired.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, id := range w.destroyQueue {
		if !w.alloc.Check(id) {
			w.log.Warn("destroy of dead entity", zap.Stringer("entity", id))
			continue
		}
		w.registry.RemoveAll(id)
		w.alloc.Retire(id)
		n++
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}

// CollectGarbage runs an amortized GC pass over every store.
func (w *World) CollectGarbage(pressure int) int {
	removed := 0
	w.registry.Each(func(s *Store) {
		removed += s.GC(w.alloc, pressure)
	})
	return removed
}

// Tables lists every table that makes up the world's persistent state.
func (w *World) Tables() []table.Named {
	named := w.alloc.Tables()
	w.registry.Each(func(s *Store) {
		named = append(named, table.Named{Name: "store." + s.Name(), Table: s.Table()})
	})
	return named
}

// Restored rebuilds derived state after Tables were filled from a dump.
func (w *World) Restored() {
	w.alloc.Restored()
	w.registry.Each(func(s *Store) { s.Rebuild() })
	w.destroyQueue = w.destroyQueue[:0]
}
