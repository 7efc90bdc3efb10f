package component

import (
	"testing"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/hashidx"
	"github.com/l1jgo/simcore/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetRegistersStores(t *testing.T) {
	w := ecs.NewWorld(0, nil)
	NewSet(w, hashidx.WithMaxProbe(8))
	assert.Equal(t, 4, w.Registry().Len())
	for _, name := range []string{"transform", "velocity", "shape", "lifetime"} {
		_, ok := w.Registry().Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestSetBounds(t *testing.T) {
	w := ecs.NewWorld(0, nil)
	s := NewSet(w)
	e := w.CreateEntity(0)
	assert.True(t, s.Bounds(e).IsEmpty())

	s.Transform.Set(e, Transform{Position: spatial.V3(1, 2, 3)})
	assert.True(t, s.Bounds(e).IsEmpty(), "no shape yet")

	s.Shape.Set(e, Shape{Half: spatial.V3(0.5, 0.5, 0.5)})
	b := s.Bounds(e)
	require.False(t, b.IsEmpty())
	assert.Equal(t, spatial.Box(spatial.V3(0.5, 1.5, 2.5), spatial.V3(1.5, 2.5, 3.5)), b)
}
