package system

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/ecs"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"go.uber.org/zap"
)

// GCSystem runs one amortized garbage collection step over every store.
// Phase 2 (Collect).
type GCSystem struct {
	world     *ecs.World
	pressure  int
	collected int
	log       *zap.Logger
}

func NewGCSystem(w *ecs.World, pressure int, log *zap.Logger) *GCSystem {
	if pressure <= 0 {
		pressure = 16
	}
	return &GCSystem{world: w, pressure: pressure, log: log}
}

func (s *GCSystem) Phase() coresys.Phase { return coresys.PhaseCollect }

func (s *GCSystem) Update(_ time.Duration) {
	if n := s.world.CollectGarbage(s.pressure); n > 0 {
		s.collected += n
		s.log.Debug("stale rows collected", zap.Int("rows", n), zap.Int("total", s.collected))
	}
}

// Collected returns the number of rows removed so far.
func (s *GCSystem) Collected() int { return s.collected }
