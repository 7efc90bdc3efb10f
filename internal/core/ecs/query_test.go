package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinRequiredAndOptional(t *testing.T) {
	a := NewAllocator(0, nil)
	pos := NewComponent[position]("position", nil)
	vel := NewComponent[velocity]("velocity", nil)
	hp := NewComponent[health]("health", nil)

	var ents []EntityID
	for i := 0; i < 12; i++ {
		e := a.Acquire(0)
		ents = append(ents, e)
		pos.Set(e, position{float32(i), 0})
		if i%2 == 0 {
			vel.Set(e, velocity{1, float32(i)})
		}
		if i%3 == 0 {
			hp.Set(e, health{int32(i), 10})
		}
	}
	// An entity only in the second store is never yielded.
	extra := a.Acquire(0)
	vel.Set(extra, velocity{})

	var rp, rv, rh uint32
	var got []EntityID
	for e := range Join(Required(&rp, pos.Store), Required(&rv, vel.Store), Optional(&rh, hp.Store)) {
		got = append(got, e)
		require.Equal(t, e, pos.Entity(rp))
		require.Equal(t, e, vel.Entity(rv))
		if i := pos.Get(rp).X; int(i)%3 == 0 {
			require.NotZero(t, rh)
			assert.Equal(t, e, hp.Entity(rh))
		} else {
			assert.Zero(t, rh)
		}
	}
	assert.Equal(t, []EntityID{ents[0], ents[2], ents[4], ents[6], ents[8], ents[10]}, got)
}

func TestJoinFollowsFirstStoreOrder(t *testing.T) {
	a := NewAllocator(0, nil)
	x := NewStore("x", nil)
	y := NewStore("y", nil)
	e1, e2, e3 := a.Acquire(0), a.Acquire(0), a.Acquire(0)
	for _, e := range []EntityID{e3, e1, e2} {
		x.Add(e)
	}
	for _, e := range []EntityID{e1, e2, e3} {
		y.Add(e)
	}

	var rx, ry uint32
	var got []EntityID
	for e := range Join(Required(&ry, y), Required(&rx, x)) {
		got = append(got, e)
	}
	assert.Equal(t, []EntityID{e1, e2, e3}, got)
}

func TestJoinEarlyBreak(t *testing.T) {
	a := NewAllocator(0, nil)
	s := NewStore("s", nil)
	for i := 0; i < 10; i++ {
		s.Add(a.Acquire(0))
	}
	var row uint32
	n := 0
	for range Join(Required(&row, s)) {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, uint32(3), row)
	assert.Empty(t, func() []EntityID {
		var out []EntityID
		for e := range Join() {
			out = append(out, e)
		}
		return out
	}())
}

func TestEachHelpers(t *testing.T) {
	a := NewAllocator(0, nil)
	pos := NewComponent[position]("position", nil)
	vel := NewComponent[velocity]("velocity", nil)
	hp := NewComponent[health]("health", nil)
	for i := 0; i < 6; i++ {
		e := a.Acquire(0)
		pos.Set(e, position{})
		vel.Set(e, velocity{X: 1, Y: 2})
		if i < 2 {
			hp.Set(e, health{Current: 1})
		}
	}

	Each2(pos, vel, func(_ EntityID, p *position, v *velocity) {
		p.X += v.X
		p.Y += v.Y
	})
	for _, p := range pos.Values() {
		assert.Equal(t, position{1, 2}, p)
	}

	n := 0
	Each3(hp, pos, vel, func(_ EntityID, h *health, _ *position, _ *velocity) {
		h.Current++
		n++
	})
	assert.Equal(t, 2, n)
	for _, h := range hp.Values() {
		assert.Equal(t, int32(2), h.Current)
	}
}
