package ecs

import (
	"math/rand"
	"testing"

	"github.com/l1jgo/simcore/internal/core/hashidx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type position struct{ X, Y float32 }

type velocity struct{ X, Y float32 }

type health struct{ Current, Max int32 }

// requireConsistent checks that every live row maps back to itself.
func requireConsistent(t *testing.T, s *Store) {
	t.Helper()
	for i, e := range s.Entities() {
		require.Equal(t, uint32(i+1), s.Find(e), "row %d entity %v", i+1, e)
	}
	require.Equal(t, s.Count(), s.index.Len())
}

func TestStoreAddFindRemove(t *testing.T) {
	a := NewAllocator(0, nil)
	pos := NewComponent[position]("position", zaptest.NewLogger(t))

	e1, e2, e3 := a.Acquire(0), a.Acquire(0), a.Acquire(0)
	pos.Set(e1, position{1, 1})
	pos.Set(e2, position{2, 2})
	pos.Set(e3, position{3, 3})
	assert.Equal(t, 3, pos.Count())
	requireConsistent(t, pos.Store)

	moved, row := pos.Remove(e1)
	assert.Equal(t, e3, moved)
	assert.Equal(t, uint32(1), row)
	assert.Zero(t, pos.Find(e1))
	assert.Equal(t, uint32(1), pos.Find(e3))
	assert.Equal(t, position{3, 3}, *pos.Get(pos.Find(e3)))
	assert.Equal(t, 2, pos.Count())
	requireConsistent(t, pos.Store)

	// Removing the last row relocates nothing.
	moved, row = pos.Remove(e2)
	assert.Zero(t, moved)
	assert.Zero(t, row)
	assert.Equal(t, []position{{3, 3}}, pos.Values())
}

func TestStoreAddTwicePanicsButAddUniqueDoesNot(t *testing.T) {
	a := NewAllocator(0, nil)
	s := NewStore("tags", nil)
	e := a.Acquire(0)
	row := s.Add(e)
	assert.Panics(t, func() { s.Add(e) })
	assert.Equal(t, row, s.AddUnique(e))
	assert.Equal(t, 1, s.Count())
	assert.Panics(t, func() { s.Add(0) })
}

func TestStoreNewRowsCopySentinel(t *testing.T) {
	a := NewAllocator(0, nil)
	hp := NewComponent[health]("health", nil)
	*hp.Get(0) = health{Current: 100, Max: 100}

	e := a.Acquire(0)
	row := hp.Add(e)
	assert.Equal(t, health{100, 100}, *hp.Get(row))
	assert.Equal(t, e, hp.Entity(row))
}

func TestStoreRemoveAbsentWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	s := NewStore("empty", zap.New(core))
	moved, row := s.Remove(NewEntityID(5, 0, 0))
	assert.Zero(t, moved)
	assert.Zero(t, row)
	assert.Equal(t, 1, logs.FilterMessage("remove of entity without row").Len())
}

func TestStoreCountInvariantUnderChurn(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a := NewAllocator(0, nil)
	pos := NewComponent[position]("position", nil)
	var live []EntityID
	added, removed := 0, 0
	for i := 0; i < 5000; i++ {
		if len(live) == 0 || rng.Intn(3) != 0 {
			e := a.Acquire(0)
			pos.Set(e, position{float32(e.Index()), 0})
			live = append(live, e)
			added++
			continue
		}
		k := rng.Intn(len(live))
		pos.Remove(live[k])
		live[k] = live[len(live)-1]
		live = live[:len(live)-1]
		removed++
	}
	assert.Equal(t, added-removed, pos.Count())
	requireConsistent(t, pos.Store)
	for _, e := range live {
		p, ok := pos.Lookup(e)
		require.True(t, ok)
		assert.Equal(t, float32(e.Index()), p.X)
	}
}

func TestStoreGCIsAmortized(t *testing.T) {
	a := NewAllocator(0, nil)
	s := NewStore("gc", nil)
	var ents []EntityID
	for i := 0; i < 100; i++ {
		e := a.Acquire(0)
		s.Add(e)
		ents = append(ents, e)
	}
	// Two dead blocks, behind live rows.
	for i := 10; i < 20; i++ {
		a.Retire(ents[i])
	}
	for i := 60; i < 70; i++ {
		a.Retire(ents[i])
	}

	assert.Zero(t, s.GC(a, 4), "the first rows are live, so the pass stops early")
	assert.Equal(t, 100, s.Count())

	calls, total := 1, 0
	for s.Count() > 80 && calls < 1000 {
		total += s.GC(a, 4)
		calls++
		requireConsistent(t, s)
	}
	assert.Equal(t, 20, total)
	assert.Equal(t, 80, s.Count())
	assert.Greater(t, calls, 2)
	for _, e := range s.Entities() {
		assert.True(t, a.Check(e))
	}
	assert.Zero(t, s.GC(a, 1000))
}

func TestStoreGCAllDead(t *testing.T) {
	a := NewAllocator(0, nil)
	s := NewStore("gc", nil)
	for i := 0; i < 10; i++ {
		e := a.Acquire(0)
		s.Add(e)
		a.Retire(e)
	}
	assert.Equal(t, 10, s.GC(a, 1))
	assert.Zero(t, s.Count())
}

func TestStoreRebuild(t *testing.T) {
	a := NewAllocator(0, nil)
	s := NewStore("r", nil)
	for i := 0; i < 20; i++ {
		s.Add(a.Acquire(0))
	}
	s.index.Clear()
	s.Rebuild()
	requireConsistent(t, s)
}

func TestStoreReindex(t *testing.T) {
	a := NewAllocator(0, nil)
	s := NewStore("r", nil)
	for i := 0; i < 300; i++ {
		s.Add(a.Acquire(0))
	}
	s.Reindex(hashidx.WithMaxProbe(4), hashidx.WithMaxLoad(0.5))
	requireConsistent(t, s)
	assert.LessOrEqual(t, s.index.MaxDistance(), 4)
}
