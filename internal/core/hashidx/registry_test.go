package hashidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type destructor struct {
	name  string
	calls int
}

func TestRegistryPutGetDelete(t *testing.T) {
	r := NewRegistry[*destructor](4)

	a := &destructor{name: "a"}
	b := &destructor{name: "b"}
	c := &destructor{name: "c"}
	r.Put(0x1000, a)
	r.Put(0x2000, b)
	r.Put(0x3000, c)
	assert.Equal(t, 3, r.Len())

	old, replaced := r.Put(0x2000, &destructor{name: "b2"})
	assert.True(t, replaced)
	assert.Same(t, b, old)

	got, ok := r.Get(0x1000)
	assert.True(t, ok)
	assert.Same(t, a, got)

	deleted, ok := r.Delete(0x1000)
	assert.True(t, ok)
	assert.Same(t, a, deleted)
	assert.Equal(t, 2, r.Len())

	// The swapped-in entry must still resolve.
	got, ok = r.Get(0x3000)
	assert.True(t, ok)
	assert.Same(t, c, got)

	_, ok = r.Get(0x1000)
	assert.False(t, ok)
	_, ok = r.Delete(0x1000)
	assert.False(t, ok)

	names := map[uint64]string{}
	r.Each(func(id uint64, d *destructor) bool {
		names[id] = d.name
		return true
	})
	assert.Equal(t, map[uint64]string{0x2000: "b2", 0x3000: "c"}, names)
}
