package system

import (
	"context"
	"time"

	"github.com/chewxy/math32"
	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/spatial"
	"go.uber.org/zap"
)

// MotionSystem integrates velocities and bounces bodies off the scene
// bounds. When a Lua motion hook is loaded it picks each body's velocity
// first. Phase 0 (Simulate).
type MotionSystem struct {
	world   *ecs.World
	set     *component.Set
	bounds  spatial.AABB
	scripts *scripting.Engine
	tick    uint64
	log     *zap.Logger
}

func NewMotionSystem(w *ecs.World, set *component.Set, bounds spatial.AABB, scripts *scripting.Engine, log *zap.Logger) *MotionSystem {
	return &MotionSystem{world: w, set: set, bounds: bounds, scripts: scripts, log: log}
}

func (s *MotionSystem) Phase() coresys.Phase { return coresys.PhaseSimulate }

func (s *MotionSystem) Update(dt time.Duration) {
	secs := float32(dt.Seconds())
	alloc := s.world.Allocator()
	hook := s.scripts != nil && s.scripts.Has("motion")
	ctx := context.Background()

	var rt, rv, rs uint32
	for e := range ecs.Join(
		ecs.Required(&rt, s.set.Transform.Store),
		ecs.Required(&rv, s.set.Velocity.Store),
		ecs.Optional(&rs, s.set.Shape.Store),
	) {
		if !alloc.Check(e) {
			continue // expired, awaiting GC
		}
		tr, v := s.set.Transform.Get(rt), s.set.Velocity.Get(rv)
		var half spatial.Vec3
		if rs != 0 {
			half = s.set.Shape.Get(rs).Half
		}
		if hook {
			if nv, ok := s.scripts.Motion(ctx, scripting.MotionContext{
				Entity:   uint32(e),
				Tag:      int(e.Tag()),
				Tick:     s.tick,
				Dt:       dt.Seconds(),
				Position: tr.Position,
				Velocity: v.Linear,
			}); ok {
				v.Linear = nv
			}
		}
		tr.Position, v.Linear = bounce(tr.Position.Add(v.Linear.Scale(secs)), v.Linear, half, s.bounds)
	}
	s.tick++
}

// bounce reflects p back inside box, shrunk by half, flipping the velocity
// on every axis it crossed.
func bounce(p, v, half spatial.Vec3, box spatial.AABB) (spatial.Vec3, spatial.Vec3) {
	lo, hi := box.Min.Add(half), box.Max.Subtract(half)
	p.X, v.X = bounceAxis(p.X, v.X, lo.X, hi.X)
	p.Y, v.Y = bounceAxis(p.Y, v.Y, lo.Y, hi.Y)
	p.Z, v.Z = bounceAxis(p.Z, v.Z, lo.Z, hi.Z)
	return p, v
}

func bounceAxis(p, v, lo, hi float32) (float32, float32) {
	switch {
	case lo > hi:
		// Wider than the scene: pin to the middle.
		return (lo + hi) / 2, 0
	case p < lo:
		return math32.Min(2*lo-p, hi), math32.Abs(v)
	case p > hi:
		return math32.Max(2*hi-p, lo), -math32.Abs(v)
	}
	return p, v
}
