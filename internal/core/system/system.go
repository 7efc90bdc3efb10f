package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseSimulate   Phase = iota // 0: integrate motion
	PhaseBroadphase              // 1: refresh spatial tree, gather pairs
	PhaseCollect                 // 2: amortized store GC
	PhasePersist                 // 3: periodic snapshots
	PhaseCleanup                 // 4: destroy queued entities, reset frame memory
)

func (p Phase) String() string {
	switch p {
	case PhaseSimulate:
		return "simulate"
	case PhaseBroadphase:
		return "broadphase"
	case PhaseCollect:
		return "collect"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
