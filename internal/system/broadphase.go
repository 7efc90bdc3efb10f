package system

import (
	"context"
	"time"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/frame"
	"github.com/l1jgo/simcore/internal/core/hashidx"
	"github.com/l1jgo/simcore/internal/core/job"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/spatial"
	"go.uber.org/zap"
)

// BroadphaseSystem keeps the spatial tree in step with the bodies and
// collects the overlapping pairs of the tick. Tree objects are entity
// indices. Contacts are tracked across ticks so that only newly started
// ones reach the Lua contact hook; starts and ends are also emitted on the
// event bus when one is given. Phase 1 (Broadphase).
type BroadphaseSystem struct {
	world   *ecs.World
	set     *component.Set
	tree    *spatial.Tree
	sched   job.Scheduler
	mem     *frame.Arena
	scripts *scripting.Engine
	bus     *event.Bus
	log     *zap.Logger

	pairs   []spatial.Pair
	active  *hashidx.Index // mixed pair key → packed pair, last tick
	next    *hashidx.Index
	doomed  *hashidx.Index // entities the contact hook destroyed this tick
	started int
	ended   int
}

func NewBroadphaseSystem(w *ecs.World, set *component.Set, tree *spatial.Tree, sched job.Scheduler, mem *frame.Arena, scripts *scripting.Engine, bus *event.Bus, log *zap.Logger, opts ...hashidx.Option) *BroadphaseSystem {
	return &BroadphaseSystem{
		world:   w,
		set:     set,
		tree:    tree,
		sched:   sched,
		mem:     mem,
		scripts: scripts,
		bus:     bus,
		log:     log,
		active:  hashidx.New(256, opts...),
		next:    hashidx.New(256, opts...),
		doomed:  hashidx.New(64, opts...),
	}
}

func (s *BroadphaseSystem) Phase() coresys.Phase { return coresys.PhaseBroadphase }

func (s *BroadphaseSystem) Update(_ time.Duration) {
	count := int(s.world.Allocator().HighWater())
	s.tree.Update(count, s.bounds, s.sched, s.mem)
	s.pairs = append(s.pairs[:0], s.tree.Pairs(s.sched, s.mem)...)
	s.track()
}

// bounds reports entity boxes by index. Dead indices are empty. Runs on
// worker goroutines and only reads the stores.
func (s *BroadphaseSystem) bounds(objs []uint32, out []spatial.AABB) {
	alloc := s.world.Allocator()
	for i, obj := range objs {
		e := alloc.Current(obj)
		if e.IsZero() {
			out[i] = spatial.Empty()
			continue
		}
		out[i] = s.set.Bounds(e)
	}
}

func packPair(p spatial.Pair) uint64 {
	return uint64(p.A)<<32 | uint64(p.B)
}

// pairKey spreads a packed pair over all 64 bits (splitmix64 finalizer).
// Home slots come from the low bits, and pairs sharing a B would
// otherwise share one.
func pairKey(packed uint64) uint64 {
	z := packed
	z = (z ^ z>>30) * 0xbf58476d1ce4e5b9
	z = (z ^ z>>27) * 0x94d049bb133111eb
	return z ^ z>>31
}

func (s *BroadphaseSystem) track() {
	hook := s.scripts != nil && s.scripts.Has("contact")
	alloc := s.world.Allocator()
	s.next.Clear()
	s.doomed.Clear()
	started := 0
	for _, p := range s.pairs {
		packed := packPair(p)
		key := pairKey(packed)
		s.next.Insert(key, packed)
		if _, ok := s.active.Lookup(key); ok {
			continue
		}
		started++
		a, b := alloc.Current(p.A), alloc.Current(p.B)
		if a.IsZero() || b.IsZero() {
			continue
		}
		if s.bus != nil {
			event.Emit(s.bus, event.ContactStarted{A: a, B: b})
		}
		if hook {
			s.contact(a, b)
		}
	}
	s.ended = s.active.Len() - (len(s.pairs) - started)
	s.started = started
	if s.bus != nil && s.ended > 0 {
		s.active.Each(func(key, packed uint64) bool {
			if _, ok := s.next.Lookup(key); !ok {
				event.Emit(s.bus, event.ContactEnded{A: uint32(packed >> 32), B: uint32(packed)})
			}
			return true
		})
	}
	s.active, s.next = s.next, s.active
}

func (s *BroadphaseSystem) contact(a, b ecs.EntityID) {
	destroy := s.scripts.Contact(context.Background(), s.contactBody(a), s.contactBody(b))
	for _, id := range destroy {
		e := ecs.EntityID(id)
		if !s.world.Alive(e) || s.doomed.Find(uint64(e)) != 0 {
			continue
		}
		s.doomed.Insert(uint64(e), 1)
		s.world.MarkForDestruction(e)
		if s.bus != nil {
			event.Emit(s.bus, event.BodyDestroyed{Entity: e})
		}
	}
}

func (s *BroadphaseSystem) contactBody(e ecs.EntityID) scripting.ContactBody {
	b := scripting.ContactBody{Entity: uint32(e), Tag: int(e.Tag())}
	if tr, ok := s.set.Transform.Lookup(e); ok {
		b.Position = tr.Position
	}
	return b
}

// Pairs returns the overlapping pairs of the last tick, by entity index.
func (s *BroadphaseSystem) Pairs() []spatial.Pair { return s.pairs }

func (s *BroadphaseSystem) Tree() *spatial.Tree { return s.tree }

// Active returns the number of pairs that overlapped in the last tick.
func (s *BroadphaseSystem) Active() int { return s.active.Len() }

// Started returns how many pairs of the last tick were not overlapping the
// tick before.
func (s *BroadphaseSystem) Started() int { return s.started }

// Ended returns how many pairs stopped overlapping in the last tick.
func (s *BroadphaseSystem) Ended() int { return s.ended }
