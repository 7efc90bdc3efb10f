// Package job runs batches of independent work, either on a bounded pool of
// goroutines or inline on the caller.
package job

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Scheduler creates groups of jobs that are waited on together.
type Scheduler interface {
	NewGroup() Group
}

// Group collects jobs. Wait blocks until every job passed to Go has returned.
// A Group is used from a single goroutine.
type Group interface {
	Go(fn func())
	Wait()
}

// Pool runs jobs on at most Workers goroutines per group.
type Pool struct {
	workers int
}

// NewPool returns a pool of workers goroutines; 0 or less means GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

func (p *Pool) Workers() int { return p.workers }

func (p *Pool) NewGroup() Group {
	g := &errgroup.Group{}
	g.SetLimit(p.workers)
	return poolGroup{g}
}

type poolGroup struct {
	g *errgroup.Group
}

func (pg poolGroup) Go(fn func()) {
	pg.g.Go(func() error {
		fn()
		return nil
	})
}

func (pg poolGroup) Wait() { _ = pg.g.Wait() }

// Inline runs every job synchronously inside Go.
type Inline struct{}

func (Inline) NewGroup() Group { return inlineGroup{} }

type inlineGroup struct{}

func (inlineGroup) Go(fn func()) { fn() }
func (inlineGroup) Wait()        {}

// ParallelFor splits [0, n) into ranges of at most batch items and runs fn on
// each range as a job, returning once all of them are done.
func ParallelFor(s Scheduler, n, batch int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if batch <= 0 {
		batch = n
	}
	g := s.NewGroup()
	for lo := 0; lo < n; lo += batch {
		hi := min(lo+batch, n)
		g.Go(func() { fn(lo, hi) })
	}
	g.Wait()
}
