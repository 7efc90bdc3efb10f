// Package sim assembles a running simulation from its configuration: the
// world and its stores, the spatial tree, the job pool, the scripts, the
// snapshot store and the phase runner.
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/core/frame"
	"github.com/l1jgo/simcore/internal/core/hashidx"
	"github.com/l1jgo/simcore/internal/core/job"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/persist"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/spatial"
	"github.com/l1jgo/simcore/internal/system"
	"go.uber.org/zap"
)

// Sim is one simulation. All methods must be called from the tick goroutine.
type Sim struct {
	cfg   *config.Config
	log   *zap.Logger
	scene *data.Scene

	world   *ecs.World
	set     *component.Set
	tree    *spatial.Tree
	mem     *frame.Arena
	scripts *scripting.Engine
	db      *persist.DB
	bus     *event.Bus
	runner  *coresys.Runner

	broadphase  *system.BroadphaseSystem
	lifetime    *system.LifetimeSystem
	gc          *system.GCSystem
	persistence *system.PersistenceSystem // nil without a store

	restored  bool
	destroyed int
}

// Option adjusts how New builds a Sim.
type Option func(*options)

type options struct {
	store persist.Store
	sched job.Scheduler
}

// WithStore uses st for snapshots instead of the configured backend.
func WithStore(st persist.Store) Option {
	return func(o *options) { o.store = st }
}

// WithScheduler runs tree jobs on s instead of a pool sized by the config.
func WithScheduler(s job.Scheduler) Option {
	return func(o *options) { o.sched = s }
}

// New builds a simulation of scene. When the snapshot store holds a saved
// state it is restored; otherwise the scene is spawned fresh.
func New(ctx context.Context, cfg *config.Config, scene *data.Scene, log *zap.Logger, opts ...Option) (*Sim, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	s := &Sim{cfg: cfg, log: log, scene: scene}
	ok := false
	defer func() {
		if !ok {
			s.Close()
		}
	}()

	hashOpts := []hashidx.Option{
		hashidx.WithMaxProbe(cfg.Hash.MaxProbe),
		hashidx.WithMaxLoad(cfg.Hash.MaxLoad),
	}
	s.world = ecs.NewWorld(cfg.Entity.MinFree, log)
	s.set = component.NewSet(s.world, hashOpts...)
	s.tree = spatial.New(spatial.Config{
		LooseRatio:       cfg.Spatial.LooseRatio,
		KMeansIterations: cfg.Spatial.KMeansIterations,
		LeafBatch:        cfg.Spatial.LeafBatch,
		PairBatch:        cfg.Spatial.PairBatch,
		MinArea:          cfg.Spatial.MinArea,
	}, log)
	s.mem = frame.New(0)

	sched := o.sched
	if sched == nil {
		pool := job.NewPool(cfg.Jobs.Workers)
		log.Info("job pool ready", zap.Int("workers", pool.Workers()))
		sched = pool
	}

	var err error
	if s.scripts, err = scripting.NewEngine(cfg.Simulation.Scripts, log); err != nil {
		return nil, fmt.Errorf("scripts: %w", err)
	}

	store := o.store
	if store == nil {
		if store, err = s.openStore(ctx); err != nil {
			return nil, err
		}
	}

	s.bus = event.NewBus()
	event.Subscribe(s.bus, func(event.BodyDestroyed) { s.destroyed++ })

	spawner := system.NewSpawner(s.world, s.set, scene, log)
	s.broadphase = system.NewBroadphaseSystem(s.world, s.set, s.tree, sched, s.mem, s.scripts, s.bus, log, hashOpts...)
	s.lifetime = system.NewLifetimeSystem(s.world, s.set, spawner, s.bus, log)
	s.gc = system.NewGCSystem(s.world, cfg.Simulation.GCPressure, log)

	s.runner = coresys.NewRunner()
	s.runner.Register(system.NewEventDispatchSystem(s.bus))
	s.runner.Register(s.lifetime)
	s.runner.Register(system.NewMotionSystem(s.world, s.set, scene.Bounds(), s.scripts, log))
	s.runner.Register(s.broadphase)
	s.runner.Register(s.gc)
	if store != nil {
		s.persistence = system.NewPersistenceSystem(s.world, store, cfg.Snapshot.Name, cfg.Snapshot.IntervalTicks, log)
		s.runner.Register(s.persistence)
		if s.restored, err = s.persistence.Restore(ctx); err != nil {
			return nil, err
		}
	}
	s.runner.Register(system.NewCleanupSystem(s.world, s.mem))

	if !s.restored {
		spawner.SpawnAll()
	}
	ok = true
	return s, nil
}

func (s *Sim) openStore(ctx context.Context) (persist.Store, error) {
	switch s.cfg.Snapshot.Backend {
	case "fs":
		return persist.NewDirStore(s.cfg.Snapshot.Dir, s.log), nil
	case "postgres":
		db, err := persist.NewDB(ctx, s.cfg.Database, s.log)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		s.db = db
		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return persist.NewSnapshotRepo(db), nil
	}
	return nil, nil
}

// Tick advances the simulation by one configured tick.
func (s *Sim) Tick() {
	s.runner.Tick(s.cfg.Simulation.TickRate)
}

// Save writes a snapshot now. It is a no-op without a store.
func (s *Sim) Save(ctx context.Context) error {
	if s.persistence == nil {
		return nil
	}
	return s.persistence.Save(ctx)
}

// Close releases the scripts and the database pool.
func (s *Sim) Close() {
	if s.scripts != nil {
		s.scripts.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

func (s *Sim) World() *ecs.World          { return s.world }
func (s *Sim) Components() *component.Set { return s.set }
func (s *Sim) Scene() *data.Scene         { return s.scene }
func (s *Sim) Restored() bool             { return s.restored }

// Events returns the bus that carries contact and lifetime events. Handlers
// run on the tick goroutine at the start of the tick after the emit.
func (s *Sim) Events() *event.Bus { return s.bus }

// Pairs returns the overlapping pairs of the last tick, by entity index.
func (s *Sim) Pairs() []spatial.Pair { return s.broadphase.Pairs() }

// Stats summarizes the simulation after the last tick.
type Stats struct {
	Tick      uint64
	Bodies    int
	Pairs     int
	Started   int
	Ended     int
	LeafDepth int
	Nodes     int
	Expired   int
	Collected int
	Destroyed int
	Saves     int
}

func (s *Sim) Stats() Stats {
	st := Stats{
		Tick:      s.runner.Ticks(),
		Bodies:    s.world.Allocator().Live(),
		Pairs:     len(s.broadphase.Pairs()),
		Started:   s.broadphase.Started(),
		Ended:     s.broadphase.Ended(),
		LeafDepth: s.tree.LeafDepth(),
		Nodes:     s.tree.Nodes(),
		Expired:   s.lifetime.Expired(),
		Collected: s.gc.Collected(),
		Destroyed: s.destroyed,
	}
	if s.persistence != nil {
		st.Saves = s.persistence.Saves()
	}
	return st
}

// Fields renders st for structured logs.
func (st Stats) Fields() []zap.Field {
	return []zap.Field{
		zap.Uint64("tick", st.Tick),
		zap.Int("bodies", st.Bodies),
		zap.Int("pairs", st.Pairs),
		zap.Int("started", st.Started),
		zap.Int("ended", st.Ended),
		zap.Int("leaf_depth", st.LeafDepth),
		zap.Int("nodes", st.Nodes),
		zap.Int("expired", st.Expired),
		zap.Int("destroyed", st.Destroyed),
	}
}

// Run ticks until ctx is done or the configured tick count is reached.
// onTick, if set, is called after every tick.
func (s *Sim) Run(ctx context.Context, onTick func(Stats)) error {
	ticker := time.NewTicker(s.cfg.Simulation.TickRate)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
			if onTick != nil {
				onTick(s.Stats())
			}
			if n := s.cfg.Simulation.Ticks; n > 0 && s.runner.Ticks() >= uint64(n) {
				return nil
			}
		}
	}
}
