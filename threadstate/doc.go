// Package threadstate implements the per-thread record and its lifecycle:
// Enter/Exit (attach/detach), Suspend/Resume, and the periodic Tick
// safepoint (spec.md §3, §4.2). A Runtime is the process-scoped value
// (spec.md §9 "Global mutable state"), constructed explicitly with
// NewRuntime; it owns the registry of live ThreadStates that a
// StopTheWorld pass must account for. It is not created by Enter, and it
// is not torn down when the last ThreadState detaches: its registry is
// simply left empty.
//
// # Architecture
//
// Each Runtime.Enter call creates and attaches a new ThreadState (spec.md
// §5: "a thread is either attached ... or detached/suspended").
// threadstate does not pin it to an OS thread; branch.With calls
// runtime.LockOSThread before Enter. EnterFrame is a small per-call
// stack frame, mirroring PyState_EnterFrame, that lets Enter be called
// recursively on the same OS thread; only the outermost Exit tears the
// ThreadState down. critical.DepthTracker is implemented directly on
// ThreadState so critical.Section can enforce the ordered-depth invariant
// without threadstate importing critical's callers.
//
// Beyond the depth stack, ThreadState carries every other piece of
// per-thread state spec.md §4.2 lists: each EnterFrame embeds a
// MonitorSpaceFrame (CurrentMonitorSpace walks the frame stack innermost
// first, lazily binding a fresh MonitorSpace to the outermost frame if
// none exists yet); a Cancel stack (PushCancelScope/PopCancelScope/
// CurrentCancelScope) tracks the cancel.Scope the thread is nested
// within; an active-Interrupt-node stack (PushInterruptNode/
// PopInterruptNode/ActiveInterruptNode) tracks the interrupt.Node the
// thread's current scope is wired to; and Async returns the
// refcount.AsyncTable attached to this ThreadState at Enter time, sized
// from the owning Runtime's WithAsyncTableSize option.
package threadstate
