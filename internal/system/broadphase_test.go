package system

import (
	"testing"
	"time"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/frame"
	"github.com/l1jgo/simcore/internal/core/job"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newBroadphase(t *testing.T, w *ecs.World, set *component.Set, scripts *scripting.Engine) (*BroadphaseSystem, *frame.Arena) {
	t.Helper()
	log := zaptest.NewLogger(t)
	mem := frame.New(0)
	tree := spatial.New(spatial.DefaultConfig(), log)
	return NewBroadphaseSystem(w, set, tree, job.Inline{}, mem, scripts, nil, log), mem
}

func TestBroadphaseTracksContacts(t *testing.T) {
	w, set := newTestWorld(t)
	half := spatial.V3(0.5, 0.5, 0.5)
	a := addBody(w, set, spatial.V3(0, 0, 0), spatial.Vec3{}, half)
	b := addBody(w, set, spatial.V3(0.8, 0, 0), spatial.Vec3{}, half)
	far := addBody(w, set, spatial.V3(5, 5, 5), spatial.Vec3{}, half)
	s, mem := newBroadphase(t, w, set, nil)

	s.Update(time.Second)
	mem.Reset()
	require.Equal(t, []spatial.Pair{{A: a.Index(), B: b.Index()}}, s.Pairs())
	assert.Equal(t, 1, s.Started())
	assert.Zero(t, s.Ended())
	assert.Equal(t, 1, s.Active())

	s.Update(time.Second)
	mem.Reset()
	assert.Zero(t, s.Started(), "contact continues")
	assert.Zero(t, s.Ended())
	assert.Equal(t, 1, s.Active())

	tr, _ := set.Transform.Lookup(b)
	tr.Position = spatial.V3(5, 5, 4.5)
	s.Update(time.Second)
	mem.Reset()
	require.Equal(t, []spatial.Pair{{A: b.Index(), B: far.Index()}}, s.Pairs())
	assert.Equal(t, 1, s.Started())
	assert.Equal(t, 1, s.Ended())
	assert.Equal(t, 4, s.Tree().Count(), "index 0 is never used but still counted")
}

func TestBroadphaseIgnoresDeadBodies(t *testing.T) {
	w, set := newTestWorld(t)
	half := spatial.V3(1, 1, 1)
	a := addBody(w, set, spatial.V3(0, 0, 0), spatial.Vec3{}, half)
	addBody(w, set, spatial.V3(0.5, 0, 0), spatial.Vec3{}, half)
	s, _ := newBroadphase(t, w, set, nil)

	s.Update(time.Second)
	require.Len(t, s.Pairs(), 1)

	// Retired but not yet collected: its rows remain, its box does not.
	w.Allocator().Retire(a)
	s.Update(time.Second)
	assert.Empty(t, s.Pairs())
	assert.Equal(t, 1, s.Ended())
}

func TestBroadphaseContactHookDestroys(t *testing.T) {
	log := zaptest.NewLogger(t)
	scripts, err := scripting.NewEngine("", log)
	require.NoError(t, err)
	defer scripts.Close()
	require.NoError(t, scripts.LoadString(`
function contact(a, b)
  if a.tag == 2 then return { a.entity } end
  if b.tag == 2 then return { b.entity } end
  return nil
end
`))

	w, set := newTestWorld(t)
	half := spatial.V3(0.5, 0.5, 0.5)
	keep := addBody(w, set, spatial.V3(0, 0, 0), spatial.Vec3{}, half)
	mine := w.CreateEntity(2)
	set.Transform.Set(mine, component.Transform{Position: spatial.V3(0.5, 0, 0)})
	set.Shape.Set(mine, component.Shape{Half: half})

	s, mem := newBroadphase(t, w, set, scripts)
	s.Update(time.Second)
	assert.Equal(t, 1, s.Started())
	assert.True(t, w.Alive(mine), "destruction is deferred to cleanup")

	NewCleanupSystem(w, mem).Update(time.Second)
	assert.False(t, w.Alive(mine))
	assert.True(t, w.Alive(keep))
	assert.Zero(t, set.Transform.Find(mine))
	assert.Zero(t, mem.Used())
}

func TestBroadphaseOnPool(t *testing.T) {
	w, set := newTestWorld(t)
	half := spatial.V3(0.4, 0.4, 0.4)
	for i := range 200 {
		addBody(w, set, spatial.V3(float32(i%20), float32(i/20), 0), spatial.Vec3{}, half)
	}
	log := zaptest.NewLogger(t)
	s := NewBroadphaseSystem(w, set, spatial.New(spatial.DefaultConfig(), log), job.NewPool(4), frame.New(0), nil, nil, log)
	s.Update(time.Second)
	assert.Empty(t, s.Pairs(), "0.2 gap between neighbours")

	tr, _ := set.Transform.Lookup(ecs.NewEntityID(1, 0, 0))
	tr.Position = spatial.V3(0.5, 0.5, 0)
	s.Update(time.Second)
	assert.Len(t, s.Pairs(), 3)
}

func TestBroadphaseManyContactsOnOneBody(t *testing.T) {
	w, set := newTestWorld(t)
	half := spatial.V3(0.4, 0.4, 0.4)
	for i := range 40 {
		addBody(w, set, spatial.V3(float32(i), 0, 0), spatial.Vec3{}, half)
	}
	// Created last so it is the higher index of every pair.
	wide := addBody(w, set, spatial.V3(19.5, 0, 0), spatial.Vec3{}, spatial.V3(21, 0.4, 0.4))
	s, _ := newBroadphase(t, w, set, nil)

	require.NotPanics(t, func() { s.Update(time.Second) })
	require.Len(t, s.Pairs(), 40)
	for _, p := range s.Pairs() {
		assert.Equal(t, wide.Index(), p.B)
	}
	assert.Equal(t, 40, s.Started())
	assert.Equal(t, 40, s.Active())

	s.Update(time.Second)
	assert.Zero(t, s.Started())
	assert.Zero(t, s.Ended())

	tr, _ := set.Transform.Lookup(wide)
	tr.Position = spatial.V3(0, 50, 0)
	s.Update(time.Second)
	assert.Empty(t, s.Pairs())
	assert.Equal(t, 40, s.Ended())
	assert.Zero(t, s.Active())
}
