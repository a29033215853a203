package threadstate

import (
	"github.com/joeycumines/go-freethread/cancel"
	"github.com/joeycumines/go-freethread/corelog"
	"github.com/joeycumines/go-freethread/critical"
	"github.com/joeycumines/go-freethread/interrupt"
	"github.com/joeycumines/go-freethread/monitor"
	"github.com/joeycumines/go-freethread/refcount"
)

// EnterFrame is a single recursive-Enter frame (spec.md §4.2, grounded on
// PyState_EnterFrame): it records a copy of the critical.Section depths
// held at the point a nested Enter call was made (Exit discards the frame
// without restoring or checking them), plus an embedded MonitorSpaceFrame
// (spec.md §4.2): the MonitorSpace, if any, that this Enter frame itself
// holds.
type EnterFrame struct {
	depths  []int
	monitor *monitor.MonitorSpace
}

// ThreadState is the per-OS-thread record spec.md §4.2 describes: an
// attach-state machine, a stack of EnterFrames for recursive Enter/Exit
// (each carrying an embedded MonitorSpaceFrame), the critical.Section
// depth stack (ThreadState implements critical.DepthTracker directly), a
// Cancel stack, the active Interrupt node, a per-thread async-refcount
// table, and the per-thread allocation cache and tick metrics.
type ThreadState struct {
	id uint64
	rt *Runtime

	state   *fastState
	logger  corelog.Logger
	metrics *TickMetrics
	cache   *SizeClassCache
	async   *refcount.AsyncTable

	frames []EnterFrame
	depths []int

	cancelStack   []*cancel.Scope
	interruptNode []*interrupt.Node

	stwArrived chan struct{}
}

// ID returns the ThreadState's runtime-unique identifier, used as the
// owner tag by refcount.Handle (spec.md §4.3).
func (t *ThreadState) ID() uint64 { return t.id }

// Metrics returns the Tick counters for this ThreadState.
func (t *ThreadState) Metrics() *TickMetrics { return t.metrics }

// Cache returns the per-size-class allocation cache for this ThreadState.
func (t *ThreadState) Cache() *SizeClassCache { return t.cache }

// Logger returns the structured logger bound to this ThreadState's Runtime.
func (t *ThreadState) Logger() corelog.Logger { return t.logger }

// Async returns this ThreadState's attached refcount.AsyncTable (spec.md
// §4.2's "per-thread async-refcount table"), constructed at Enter time
// and sized from the owning Runtime's configured table size.
func (t *ThreadState) Async() *refcount.AsyncTable { return t.async }

// CurrentMonitorSpace returns the innermost MonitorSpace bound to this
// thread's EnterFrame stack (spec.md §4.2's MonitorSpaceFrame stack,
// spec.md's GetCurrent description: "the innermost MonitorSpace on the
// thread's MonitorSpaceFrame stack, constructing a fresh one lazily at
// the outermost frame if none exists"). ctor is only called, and only the
// outermost frame is bound, when no frame currently holds one.
func (t *ThreadState) CurrentMonitorSpace(ctor func() *monitor.MonitorSpace) *monitor.MonitorSpace {
	for i := len(t.frames) - 1; i >= 0; i-- {
		if t.frames[i].monitor != nil {
			return t.frames[i].monitor
		}
	}
	m := ctor()
	t.frames[0].monitor = m
	return m
}

// PushMonitorFrame binds m as the MonitorSpace held by the current
// (innermost) EnterFrame, for the duration of a Monitor.Enter call on
// this thread.
func (t *ThreadState) PushMonitorFrame(m *monitor.MonitorSpace) {
	t.frames[len(t.frames)-1].monitor = m
}

// PopMonitorFrame clears the MonitorSpace held by the current EnterFrame.
func (t *ThreadState) PopMonitorFrame() {
	t.frames[len(t.frames)-1].monitor = nil
}

// PushCancelScope makes s the innermost entry of this thread's Cancel
// stack (spec.md §4.2).
func (t *ThreadState) PushCancelScope(s *cancel.Scope) {
	t.cancelStack = append(t.cancelStack, s)
}

// PopCancelScope removes the innermost entry of this thread's Cancel
// stack. It panics if the stack is empty.
func (t *ThreadState) PopCancelScope() {
	if len(t.cancelStack) == 0 {
		panic("threadstate: PopCancelScope with an empty Cancel stack")
	}
	t.cancelStack = t.cancelStack[:len(t.cancelStack)-1]
}

// CurrentCancelScope returns the innermost entry of this thread's Cancel
// stack, or nil if the thread is not currently within any cancel.Scope.
func (t *ThreadState) CurrentCancelScope() *cancel.Scope {
	if len(t.cancelStack) == 0 {
		return nil
	}
	return t.cancelStack[len(t.cancelStack)-1]
}

// PushInterruptNode makes n this thread's active Interrupt node (spec.md
// §4.2), e.g. while executing within a Branch child or a Cancel scope
// that wires its own interrupt.Node.
func (t *ThreadState) PushInterruptNode(n *interrupt.Node) {
	t.interruptNode = append(t.interruptNode, n)
}

// PopInterruptNode restores the previously active Interrupt node. It
// panics if none is active.
func (t *ThreadState) PopInterruptNode() {
	if len(t.interruptNode) == 0 {
		panic("threadstate: PopInterruptNode with no active Interrupt node")
	}
	t.interruptNode = t.interruptNode[:len(t.interruptNode)-1]
}

// ActiveInterruptNode returns this thread's active Interrupt node, or nil
// if none is active.
func (t *ThreadState) ActiveInterruptNode() *interrupt.Node {
	if len(t.interruptNode) == 0 {
		return nil
	}
	return t.interruptNode[len(t.interruptNode)-1]
}

// Enter pushes a recursive EnterFrame onto an already-attached ThreadState
// (spec.md §4.2: "Enter may be called recursively on the same thread").
// The returned frame index must be passed to the matching Exit.
func (t *ThreadState) Enter() int {
	t.frames = append(t.frames, EnterFrame{depths: append([]int(nil), t.depths...)})
	return len(t.frames) - 1
}

// Exit pops the EnterFrame at idx, which must be the most recently pushed
// frame (strict LIFO, spec.md §4.2). When idx is 0 (the outermost frame,
// pushed by Runtime.Enter) this also detaches the ThreadState and removes
// it from the Runtime's registry.
func (t *ThreadState) Exit(idx int) {
	if idx != len(t.frames)-1 {
		panic("threadstate: Exit called out of order")
	}
	t.frames = t.frames[:idx]
	if idx == 0 {
		t.state.Store(Detaching)
		t.rt.exitThreadState(t)
		t.state.Store(Detached)
		return
	}
}

// Suspend transitions an attached ThreadState to Suspended (spec.md §4.2:
// used around blocking syscalls so a StopTheWorld pass does not wait on a
// thread that cannot reach a Tick checkpoint). Suspend may be
// called only from Attached; calling it twice without an intervening
// Resume panics, matching critical.Section's re-entry panic convention.
func (t *ThreadState) Suspend() {
	if !t.state.TryTransition(Attached, Suspended) {
		panic("threadstate: Suspend called while not Attached")
	}
}

// Resume transitions a Suspended ThreadState back to Attached.
func (t *ThreadState) Resume() {
	if !t.state.TryTransition(Suspended, Attached) {
		panic("threadstate: Resume called while not Suspended")
	}
}

// Tick is the cooperative safepoint every long-running loop in a thread's
// code is expected to call periodically (spec.md §5.2). The fast path
// (no StopTheWorld in progress) is a single atomic load and a counter
// bump; the slow path arrives at the safepoint, signals StopTheWorld, and
// blocks until release.
func (t *ThreadState) Tick() {
	if !t.rt.stopTheWorld.Load() {
		t.metrics.recordSmall()
		return
	}
	t.metrics.recordLarge()

	t.rt.mu.Lock()
	if t.stwArrived != nil {
		close(t.stwArrived)
		t.stwArrived = nil
	}
	t.rt.stwCond.Wait()
	t.rt.mu.Unlock()
}

// --- critical.DepthTracker ---

// CurrentDepth returns the depth of the most recently entered
// critical.Section held by this thread, or critical.NoDepthHeld if none.
func (t *ThreadState) CurrentDepth() int {
	if len(t.depths) == 0 {
		return critical.NoDepthHeld
	}
	return t.depths[len(t.depths)-1]
}

// PushDepth records that a critical.Section at depth d was just entered.
func (t *ThreadState) PushDepth(d int) {
	t.depths = append(t.depths, d)
}

// PopDepth records that the critical.Section at depth d was just exited;
// it must be the most recently pushed depth.
func (t *ThreadState) PopDepth(d int) {
	if len(t.depths) == 0 || t.depths[len(t.depths)-1] != d {
		panic("threadstate: PopDepth does not match most recent PushDepth")
	}
	t.depths = t.depths[:len(t.depths)-1]
}

// Suspended reports whether this ThreadState is currently suspended.
func (t *ThreadState) Suspended() bool {
	return t.state.IsSuspended()
}
