package threadstate

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/go-freethread/corelog"
	"github.com/joeycumines/go-freethread/refcount"
)

// Standard errors, grounded on eventloop's ErrLoop* sentinel-error block.
// No function in this package returns them: Enter always creates a new
// ThreadState, and Exit, Suspend and Resume report misuse by panicking.
var (
	// ErrAlreadyAttached names the condition of a ThreadState that is
	// already attached.
	ErrAlreadyAttached = errors.New("threadstate: already attached")

	// ErrNotAttached names the condition of an operation made without a
	// matching Enter.
	ErrNotAttached = errors.New("threadstate: not attached")

	// ErrSuspended names the condition of an operation that requires the
	// attached state being attempted while suspended.
	ErrSuspended = errors.New("threadstate: suspended")
)

// Runtime is the process-scoped registry of live ThreadStates (spec.md §9
// "Global mutable state"). It is created once per process with NewRuntime
// and passed to the packages that need it (branch.With,
// shareddict.WithStopTheWorld, freethread.Runtime); refcount, critical and
// monitor sit below threadstate and do not use it. Grounded on eventloop.Loop's id+registry+stopOnce shape,
// generalized from "one loop, many tasks" to "one runtime, many threads".
type Runtime struct {
	logger corelog.Logger

	sizeClassCount      int
	sizeClassCacheDepth int
	asyncTableSize      int

	mu      sync.Mutex
	threads map[uint64]*ThreadState
	nextID  atomic.Uint64

	// stopTheWorld is set while a StopTheWorld pass is in progress; Tick
	// observes it at the large-tick slow path and blocks until cleared.
	stopTheWorld atomic.Bool
	stwCond      *sync.Cond
}

// NewRuntime constructs a Runtime with the given options applied.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	cfg := resolveRuntimeOptions(opts)
	rt := &Runtime{
		logger:              cfg.logger,
		sizeClassCount:      cfg.sizeClassCount,
		sizeClassCacheDepth: cfg.sizeClassCacheDepth,
		asyncTableSize:      cfg.asyncTableSize,
		threads:             make(map[uint64]*ThreadState),
	}
	rt.stwCond = sync.NewCond(&rt.mu)
	return rt
}

// Enter creates and attaches a new ThreadState to the calling OS thread
// (spec.md §4.2). The caller must arrange to call (*ThreadState).Exit on
// the same OS thread when done; threadstate does not itself call
// runtime.LockOSThread, that is left to the caller's scheduling layer
// (branch.Branch pins the OS thread before calling Enter).
func (rt *Runtime) Enter() *ThreadState {
	id := rt.nextID.Add(1)
	ts := &ThreadState{
		id:      id,
		rt:      rt,
		state:   newFastState(Attached),
		logger:  rt.logger,
		metrics: &TickMetrics{},
		cache:   NewSizeClassCache(rt.sizeClassCount, rt.sizeClassCacheDepth),
		async:   refcount.NewAsyncTable(rt.asyncTableSize),
	}
	ts.frames = append(ts.frames, EnterFrame{})

	rt.mu.Lock()
	rt.threads[id] = ts
	rt.mu.Unlock()

	corelog.Emit(rt.logger, corelog.Entry{
		Level: corelog.LevelDebug, Component: "threadstate", Message: "entered",
		Fields: map[string]any{"thread": id},
	})
	return ts
}

// exitThreadState removes ts from the registry; called by the outermost
// (*ThreadState).Exit.
func (rt *Runtime) exitThreadState(ts *ThreadState) {
	rt.mu.Lock()
	delete(rt.threads, ts.id)
	rt.mu.Unlock()
	corelog.Emit(rt.logger, corelog.Entry{
		Level: corelog.LevelDebug, Component: "threadstate", Message: "exited",
		Fields: map[string]any{"thread": ts.id},
	})
}

// Snapshot returns the ThreadStates currently attached or suspended. Used
// by a StopTheWorld pass to know which threads to wait on.
func (rt *Runtime) Snapshot() []*ThreadState {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	out := make([]*ThreadState, 0, len(rt.threads))
	for _, ts := range rt.threads {
		out = append(out, ts)
	}
	return out
}

// StopTheWorld suspends every attached ThreadState and runs fn while all
// of them are held at a safepoint, then resumes them. Any ThreadState that
// is already suspended (spec.md §4.2, the GIL-equivalent gap) is left
// alone; StopTheWorld only needs attached threads to reach a Tick
// checkpoint and stop there, grounded on the "dummy critical section"
// idiom critical.AllocateDummy documents for the same purpose.
func (rt *Runtime) StopTheWorld(fn func()) {
	rt.stopTheWorld.Store(true)
	defer rt.stopTheWorld.Store(false)

	threads := rt.Snapshot()
	var wg sync.WaitGroup
	for _, ts := range threads {
		ts := ts
		if ts.state.Load() == Suspended {
			continue
		}
		wg.Add(1)
		ts.stwArrived = make(chan struct{})
		go func() {
			defer wg.Done()
			<-ts.stwArrived
		}()
	}
	wg.Wait()
	fn()

	rt.mu.Lock()
	rt.stwCond.Broadcast()
	rt.mu.Unlock()
}
