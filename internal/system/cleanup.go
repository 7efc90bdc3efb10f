package system

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/frame"
	coresys "github.com/l1jgo/simcore/internal/core/system"
)

// CleanupSystem flushes the deferred entity destruction queue at tick end
// and rewinds the frame arena. Phase 4 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	mem   *frame.Arena
}

func NewCleanupSystem(world *ecs.World, mem *frame.Arena) *CleanupSystem {
	return &CleanupSystem{world: world, mem: mem}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.FlushDestroyQueue()
	if s.mem != nil {
		s.mem.Reset()
	}
}
