package system

import (
	"time"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"go.uber.org/zap"
)

type expiry struct {
	e     ecs.EntityID
	group int
}

// LifetimeSystem counts down body lifetimes. Expired bodies are retired
// right away and their rows are left for the GC to sweep; respawning groups
// get a fresh body in their place. Phase 0 (Simulate), registered before
// motion.
type LifetimeSystem struct {
	world   *ecs.World
	set     *component.Set
	spawner *Spawner
	bus     *event.Bus
	expired []expiry
	total   int
	log     *zap.Logger
}

func NewLifetimeSystem(w *ecs.World, set *component.Set, spawner *Spawner, bus *event.Bus, log *zap.Logger) *LifetimeSystem {
	return &LifetimeSystem{world: w, set: set, spawner: spawner, bus: bus, log: log}
}

func (s *LifetimeSystem) Phase() coresys.Phase { return coresys.PhaseSimulate }

func (s *LifetimeSystem) Update(_ time.Duration) {
	alloc := s.world.Allocator()
	lt := s.set.Lifetime
	s.expired = s.expired[:0]
	for row := uint32(1); int(row) <= lt.Count(); row++ {
		e := lt.Entity(row)
		if !alloc.Check(e) {
			continue
		}
		l := lt.Get(row)
		l.Ticks--
		if l.Ticks <= 0 {
			s.expired = append(s.expired, expiry{e: e, group: int(l.Group)})
		}
	}

	respawned := 0
	for _, x := range s.expired {
		alloc.Retire(x.e)
		if s.bus != nil {
			event.Emit(s.bus, event.BodyExpired{Entity: x.e, Group: x.group})
		}
		if s.spawner != nil {
			if _, ok := s.spawner.Respawn(x.group); ok {
				respawned++
			}
		}
	}
	if len(s.expired) > 0 {
		s.total += len(s.expired)
		s.log.Debug("bodies expired", zap.Int("expired", len(s.expired)), zap.Int("respawned", respawned))
	}
}

// Expired returns the number of bodies that ran out of lifetime so far.
func (s *LifetimeSystem) Expired() int { return s.total }
