package system

import (
	"math/rand"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/spatial"
	"go.uber.org/zap"
)

// Spawner creates bodies from the spawn groups of a scene. It draws from a
// generator seeded by the scene, so the same scene always spawns the same
// bodies in the same order.
type Spawner struct {
	world *ecs.World
	set   *component.Set
	scene *data.Scene
	rng   *rand.Rand
	log   *zap.Logger
}

func NewSpawner(w *ecs.World, set *component.Set, scene *data.Scene, log *zap.Logger) *Spawner {
	return &Spawner{
		world: w,
		set:   set,
		scene: scene,
		rng:   rand.New(rand.NewSource(scene.Seed)),
		log:   log,
	}
}

// SpawnAll creates the initial population of every group.
func (s *Spawner) SpawnAll() int {
	n := 0
	for gi, g := range s.scene.Groups {
		for range g.Count {
			s.spawn(gi)
			n++
		}
	}
	s.log.Info("scene spawned",
		zap.String("scene", s.scene.Name),
		zap.Int("bodies", n),
		zap.Int("groups", len(s.scene.Groups)),
	)
	return n
}

// Respawn replaces an expired body of group gi, if the group asks for it.
func (s *Spawner) Respawn(gi int) (ecs.EntityID, bool) {
	if gi < 0 || gi >= len(s.scene.Groups) || !s.scene.Groups[gi].Respawn {
		return 0, false
	}
	return s.spawn(gi), true
}

func (s *Spawner) spawn(gi int) ecs.EntityID {
	g := &s.scene.Groups[gi]
	e := s.world.CreateEntity(g.Tag)
	j := g.Jitter
	s.set.Transform.Set(e, component.Transform{Position: g.Position.Vec().Add(s.offset(g.Spread.Vec()))})
	s.set.Velocity.Set(e, component.Velocity{Linear: g.Velocity.Vec().Add(s.offset(spatial.V3(j, j, j)))})
	s.set.Shape.Set(e, component.Shape{Half: g.Extent.Vec()})
	if g.Lifetime > 0 {
		s.set.Lifetime.Set(e, component.Lifetime{Ticks: g.Lifetime, Group: uint16(gi)})
	}
	return e
}

// offset draws a uniform vector in [-r, r] per axis.
func (s *Spawner) offset(r spatial.Vec3) spatial.Vec3 {
	return spatial.V3(
		(s.rng.Float32()*2-1)*r.X,
		(s.rng.Float32()*2-1)*r.Y,
		(s.rng.Float32()*2-1)*r.Z,
	)
}
