// simbench times tree updates and pair collection over random boxes.
//
// Profiling:
//
//	simbench -profile cpu -n 50000
//	go tool pprof -http=":8000" ./simbench cpu.pprof
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/l1jgo/simcore/internal/core/frame"
	"github.com/l1jgo/simcore/internal/core/job"
	"github.com/l1jgo/simcore/internal/spatial"
	"github.com/pkg/profile"
	"go.uber.org/zap"
)

type options struct {
	count   int
	rounds  int
	extent  float64
	speed   float64
	workers int
	seed    int64
	prof    string
	verbose bool
}

func main() {
	var o options
	flag.IntVar(&o.count, "n", 10000, "number of boxes")
	flag.IntVar(&o.rounds, "rounds", 200, "update+pairs rounds")
	flag.Float64Var(&o.extent, "extent", 100, "half size of the cube the boxes live in")
	flag.Float64Var(&o.speed, "speed", 0.5, "max distance a box moves per round")
	flag.IntVar(&o.workers, "workers", 0, "job pool size, 0 = GOMAXPROCS, -1 = inline")
	flag.Int64Var(&o.seed, "seed", 1, "random seed")
	flag.StringVar(&o.prof, "profile", "", "cpu, mem or empty")
	flag.BoolVar(&o.verbose, "v", false, "log tree updates")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(o options) error {
	if o.count <= 0 || o.rounds <= 0 {
		return fmt.Errorf("n and rounds must be positive")
	}
	switch o.prof {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		return fmt.Errorf("unknown profile %q", o.prof)
	}

	log := zap.NewNop()
	if o.verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return err
		}
		defer log.Sync()
	}

	var sched job.Scheduler = job.Inline{}
	if o.workers >= 0 {
		sched = job.NewPool(o.workers)
	}

	rng := rand.New(rand.NewSource(o.seed))
	ext := float32(o.extent)
	speed := float32(o.speed)
	half := spatial.V3(0.5, 0.5, 0.5)
	pos := make([]spatial.Vec3, o.count)
	for i := range pos {
		pos[i] = spatial.V3(
			(rng.Float32()*2-1)*ext,
			(rng.Float32()*2-1)*ext,
			(rng.Float32()*2-1)*ext,
		)
	}
	bounds := func(objs []uint32, out []spatial.AABB) {
		for i, obj := range objs {
			out[i] = spatial.Around(pos[obj], half)
		}
	}

	tree := spatial.New(spatial.DefaultConfig(), log)
	mem := frame.New(0)
	var update, pairs time.Duration
	total := 0
	for range o.rounds {
		for i := range pos {
			pos[i] = pos[i].Add(spatial.V3(
				(rng.Float32()*2-1)*speed,
				(rng.Float32()*2-1)*speed,
				(rng.Float32()*2-1)*speed,
			))
		}
		start := time.Now()
		tree.Update(o.count, bounds, sched, mem)
		mid := time.Now()
		total += len(tree.Pairs(sched, mem))
		pairs += time.Since(mid)
		update += mid.Sub(start)
		mem.Reset()
	}

	fmt.Printf("boxes        %d\n", o.count)
	fmt.Printf("rounds       %d\n", o.rounds)
	fmt.Printf("leaf depth   %d\n", tree.LeafDepth())
	fmt.Printf("nodes        %d\n", tree.Nodes())
	fmt.Printf("pairs/round  %.1f\n", float64(total)/float64(o.rounds))
	fmt.Printf("update       %v/round\n", update/time.Duration(o.rounds))
	fmt.Printf("pairs        %v/round\n", pairs/time.Duration(o.rounds))
	return nil
}
