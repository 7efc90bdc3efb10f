package system

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/l1jgo/simcore/internal/core/table"
	"github.com/l1jgo/simcore/internal/persist"
	"github.com/l1jgo/simcore/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gopkg.in/src-d/go-billy.v4/memfs"
)

func TestPersistenceRoundTrip(t *testing.T) {
	log := zaptest.NewLogger(t)
	store := persist.NewFSStore(memfs.New(), log)
	ctx := context.Background()

	w, set := newTestWorld(t)
	NewSpawner(w, set, testScene(), log).SpawnAll()
	w.Allocator().Retire(set.Transform.Entity(2))
	src := NewPersistenceSystem(w, store, "latest", 2, log)

	src.Update(time.Second)
	assert.Zero(t, src.Saves())
	src.Update(time.Second)
	assert.Equal(t, 1, src.Saves())

	w2, set2 := newTestWorld(t)
	dst := NewPersistenceSystem(w2, store, "latest", 0, log)
	ok, err := dst.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, w.Allocator().Live(), w2.Allocator().Live())
	assert.Equal(t, set.Transform.Values(), set2.Transform.Values())
	assert.Equal(t, set.Lifetime.Values(), set2.Lifetime.Values())
	for _, e := range set.Transform.Entities() {
		assert.Equal(t, w.Alive(e), w2.Alive(e))
		assert.Equal(t, set.Transform.Find(e), set2.Transform.Find(e))
	}
	assert.Equal(t, w.CreateEntity(0), w2.CreateEntity(0))
}

func TestPersistenceRestoreWithoutSnapshot(t *testing.T) {
	log := zaptest.NewLogger(t)
	w, set := newTestWorld(t)
	e := addBody(w, set, spatial.Vec3{}, spatial.Vec3{}, spatial.Vec3{})
	s := NewPersistenceSystem(w, persist.NewFSStore(memfs.New(), log), "none", 1, log)

	ok, err := s.Restore(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, w.Alive(e))
}

type failingStore struct{ calls int }

func (f *failingStore) Save(context.Context, string, []table.Named) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingStore) Load(context.Context, string, []table.Named) error {
	return errors.New("disk gone")
}

func TestPersistenceErrors(t *testing.T) {
	log := zaptest.NewLogger(t)
	w, _ := newTestWorld(t)
	store := &failingStore{}
	s := NewPersistenceSystem(w, store, "x", 1, log)

	s.Update(time.Second)
	assert.Equal(t, 1, store.calls)
	assert.Zero(t, s.Saves())

	_, err := s.Restore(context.Background())
	assert.ErrorContains(t, err, "disk gone")
}
