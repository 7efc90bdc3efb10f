package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAABBBasics(t *testing.T) {
	a := Box(V3(0, 0, 0), V3(2, 1, 1))
	b := Box(V3(2, 0, 0), V3(3, 1, 1))
	c := Box(V3(2.5, 2, 0), V3(3, 3, 1))

	assert.True(t, a.Overlaps(b), "touching faces overlap")
	assert.False(t, a.Overlaps(c))
	assert.Equal(t, Box(V3(0, 0, 0), V3(3, 1, 1)), a.Union(b))
	assert.True(t, a.Union(b).Contains(a))
	assert.False(t, a.Contains(b))
	assert.Equal(t, V3(1, 0.5, 0.5), a.Center())
	assert.Equal(t, float32(2+1+2), a.Area())
	assert.Equal(t, 0, a.LongestAxis())
	assert.Equal(t, 1, Box(V3(0, 0, 0), V3(1, 3, 2)).LongestAxis())
}

func TestEmptyAABB(t *testing.T) {
	e := Empty()
	a := Around(V3(1, 1, 1), V3(1, 1, 1))
	assert.True(t, e.IsEmpty())
	assert.Equal(t, a, e.Union(a))
	assert.True(t, a.Contains(e))
	assert.False(t, e.Contains(a))
	assert.False(t, e.Overlaps(a))
	assert.False(t, a.Overlaps(e))
	assert.False(t, e.Overlaps(e))
	assert.Equal(t, Vec3{}, e.Center())
	assert.Zero(t, e.Area())
}
