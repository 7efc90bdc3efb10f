package system

import (
	"testing"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/spatial"
	"go.uber.org/zap/zaptest"
)

func newTestWorld(t *testing.T) (*ecs.World, *component.Set) {
	t.Helper()
	w := ecs.NewWorld(0, zaptest.NewLogger(t))
	return w, component.NewSet(w)
}

func addBody(w *ecs.World, set *component.Set, pos, vel, half spatial.Vec3) ecs.EntityID {
	e := w.CreateEntity(0)
	set.Transform.Set(e, component.Transform{Position: pos})
	set.Velocity.Set(e, component.Velocity{Linear: vel})
	set.Shape.Set(e, component.Shape{Half: half})
	return e
}

func position(t *testing.T, set *component.Set, e ecs.EntityID) spatial.Vec3 {
	t.Helper()
	tr, ok := set.Transform.Lookup(e)
	if !ok {
		t.Fatalf("entity %v has no transform", e)
	}
	return tr.Position
}

func lifetimeOf(ticks int32) component.Lifetime {
	return component.Lifetime{Ticks: ticks}
}
