// Package task runs asynchronous work bound to an owner's lifetime.
//
// A Group is created by the component that owns some state (the view-model
// store, an interaction session). Every task started through it receives the
// group's context; Stop cancels that context, after which no new tasks are
// accepted and running tasks observe cancellation. Owners check Stopped (or
// their own closed flag) before committing results, so a late result from a
// stopped group is discarded rather than applied.
package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/abelbrown/delayboard/internal/logging"
)

// Stats counts tasks by outcome.
type Stats struct {
	Started   int64
	Completed int64
	Failed    int64
	Cancelled int64
	Active    int
}

// Group is a set of cancellable tasks sharing one lifetime.
type Group struct {
	name string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	active  map[string]string // id -> task name

	totalStarted   atomic.Int64
	totalCompleted atomic.Int64
	totalFailed    atomic.Int64
	totalCancelled atomic.Int64

	nextID atomic.Int64
}

// NewGroup creates a Group whose lifetime ends when parent is cancelled or
// Stop is called.
func NewGroup(parent context.Context, name string) *Group {
	ctx, cancel := context.WithCancel(parent)
	return &Group{
		name:   name,
		ctx:    ctx,
		cancel: cancel,
		active: make(map[string]string),
	}
}

// Go starts fn in a new goroutine. It returns false, without running fn, if
// the group has been stopped.
func (g *Group) Go(name string, fn func(ctx context.Context) error) bool {
	g.mu.Lock()
	if g.stopped || g.ctx.Err() != nil {
		g.mu.Unlock()
		return false
	}
	id := fmt.Sprintf("%s-%d", g.name, g.nextID.Add(1))
	g.active[id] = name
	g.wg.Add(1)
	g.mu.Unlock()

	g.totalStarted.Add(1)
	go g.execute(id, name, fn)
	return true
}

func (g *Group) execute(id, name string, fn func(ctx context.Context) error) {
	defer g.wg.Done()

	var err error
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Task panicked", "group", g.name, "task", name, "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
		g.complete(id, name, err)
	}()

	err = fn(g.ctx)
}

func (g *Group) complete(id, name string, err error) {
	g.mu.Lock()
	delete(g.active, id)
	g.mu.Unlock()

	switch {
	case err == nil:
		g.totalCompleted.Add(1)
	case errors.Is(err, context.Canceled) || g.ctx.Err() != nil:
		g.totalCancelled.Add(1)
		logging.Debug("Task cancelled", "group", g.name, "task", name)
	default:
		g.totalFailed.Add(1)
		logging.Debug("Task failed", "group", g.name, "task", name, "error", err)
	}
}

// Context returns the group's context.
func (g *Group) Context() context.Context { return g.ctx }

// Done is closed when the group is stopped or its parent is cancelled.
func (g *Group) Done() <-chan struct{} { return g.ctx.Done() }

// Stopped reports whether the group's lifetime has ended.
func (g *Group) Stopped() bool {
	return g.ctx.Err() != nil
}

// Stop cancels the group. It does not wait for running tasks.
func (g *Group) Stop() {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	g.cancel()
}

// Wait blocks until every started task has returned.
func (g *Group) Wait() {
	g.wg.Wait()
}

// Stats returns current counters.
func (g *Group) Stats() Stats {
	g.mu.Lock()
	active := len(g.active)
	g.mu.Unlock()

	return Stats{
		Started:   g.totalStarted.Load(),
		Completed: g.totalCompleted.Load(),
		Failed:    g.totalFailed.Load(),
		Cancelled: g.totalCancelled.Load(),
		Active:    active,
	}
}
