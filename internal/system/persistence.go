package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/l1jgo/simcore/internal/core/ecs"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/persist"
	"go.uber.org/zap"
)

const saveTimeout = 5 * time.Second

// PersistenceSystem periodically snapshots every world table to a store.
// Phase 3 (Persist).
type PersistenceSystem struct {
	world     *ecs.World
	store     persist.Store
	name      string
	interval  int
	tickCount int
	saves     int
	log       *zap.Logger
}

// NewPersistenceSystem saves under name every interval ticks. An interval
// of zero or less disables periodic saves; Save still works.
func NewPersistenceSystem(w *ecs.World, store persist.Store, name string, interval int, log *zap.Logger) *PersistenceSystem {
	return &PersistenceSystem{world: w, store: store, name: name, interval: interval, log: log}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	if s.interval <= 0 {
		return
	}
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.Save(ctx); err != nil {
		s.log.Error("snapshot failed", zap.String("name", s.name), zap.Error(err))
	}
}

// Save writes the current world state.
func (s *PersistenceSystem) Save(ctx context.Context) error {
	start := time.Now()
	if err := s.store.Save(ctx, s.name, s.world.Tables()); err != nil {
		return err
	}
	s.saves++
	s.log.Info("snapshot saved",
		zap.String("name", s.name),
		zap.Int("entities", s.world.Allocator().Live()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Restore loads the last snapshot into the world. It reports false, and
// leaves the world untouched, when nothing was saved yet.
func (s *PersistenceSystem) Restore(ctx context.Context) (bool, error) {
	err := s.store.Load(ctx, s.name, s.world.Tables())
	if errors.Is(err, persist.ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("restore %q: %w", s.name, err)
	}
	s.world.Restored()
	s.log.Info("snapshot restored", zap.String("name", s.name), zap.Int("entities", s.world.Allocator().Live()))
	return true, nil
}

// Saves returns the number of successful saves.
func (s *PersistenceSystem) Saves() int { return s.saves }
