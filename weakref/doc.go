// Package weakref implements weak references and post-mortem
// notification hooked directly to refcount.Handle's dealloc path
// (spec.md §4.7), not to Go's garbage collector: Ref installs itself as
// a handle's WeakrefClearer via Handle.InstallWeakref, so it is
// refcount.Handle.finalize — not a GC cleanup callback racing the
// collector on its own goroutine — that nulls the referent and moves
// every attached DeathQueueHandle from live to dead. Death is therefore
// observed the instant the owning Decref/DecrefAsync/FlushFinalize call
// actually reaches zero, deterministically, rather than whenever the
// collector next runs.
//
// Ref, DeathQueueHandle, and DeathQueue each carry a dummy
// critical.Section (critical.DepthWeakrefRef/Handle/Queue) purely to
// enforce spec.md §4.1's ordered-acquisition discipline (REF before
// HANDLE before QUEUE) across the operations that touch more than one of
// them; the actual mutual exclusion is each type's own mutex, the same
// two-tier split threadstate.ThreadState.Tick uses between its real lock
// and its StopTheWorld bookkeeping.
//
// Grounded on eventloop/registry.go's live/dead bookkeeping pattern
// (informing Watch/Cancel's install-once-and-idempotent-cancel
// semantics) and cpython/Objects/weakrefobject.c + Modules/_weakref.c for
// the exact install/clear contract and the ordered critical sections.
// DeathQueue.Wait's condition-variable-over-timer shape is informed by
// the monorepo's microbatch/longpoll packages' drain-on-a-timer idiom.
// github.com/joeycumines/go-catrate throttles the diagnostic logging
// DeathQueue emits under high churn (many targets dying together),
// without ever throttling the wake itself — correctness requires every
// death to eventually be observable, only the logging is rate-limited.
package weakref
